package body

import "fmt"

func draftPrompt(extractJSON []byte) string {
	return fmt.Sprintf(`基于以下A段JSON，写AMS正文仅两段，不要编号，不要计划，不要JSON，不要引入新事实。缺失信息写“待确认”或“未获取”。
第一段必须覆盖：客户称呼/咨询车型/核心需求关注点/性格标签/客户类型/意向等级。
第二段必须覆盖：新客首触/介绍卖点/客户认可点/确认信息/邀约结果/异议点。
A段JSON:%s`, extractJSON)
}

func correctivePrompt(p1, p2 string) string {
	return fmt.Sprintf("请仅重写正文两段，总字符数100-150（中文计数，含标点，不含空格换行）。当前不合格。原文:%s\n%s", p1, p2)
}
