// Package plan derives the 1–3 item follow-up plan from an extraction
// record. It is deterministic rule branching, not an LLM call: the plan is
// the one part of the AMS record that must never drift.
package plan

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/salescopilot/amsgen/internal/extract"
)

// Title is the fixed first line of every plan.
const Title = "后续跟进计划"

// Sentinel wording used inside plan lines for unconfirmed details.
const pending = "待确认"

var (
	itemPattern    = regexp.MustCompile(`^[1-3]\.\s`)
	overrunPattern = regexp.MustCompile(`^[4-9]\.\s`)
)

// Build emits the plan text: the fixed title followed by exactly three
// numbered lines, one per category (invite follow-through, objection or
// info gap, next push). First match wins within each category.
func Build(rec *extract.Record) string {
	facts := rec.Facts
	invite := facts.InviteResult
	if invite == "" {
		invite = pending
	}
	intent := facts.IntentLevel
	if intent == "" {
		intent = pending
	}

	var lines []string

	if strings.Contains(invite, "已约") {
		lines = append(lines, "1. 立即发送门店定位、接待人联系方式及到店提醒，确认到店时间与人数。")
	} else {
		lines = append(lines, "1. 发送车型亮点与门店定位资料，48小时内二次回访锁定试驾档期（待确认时间）。")
	}

	if len(rec.Objections) > 0 {
		topic := rec.Objections[0].Topic
		if topic == "" {
			topic = pending
		}
		lines = append(lines, fmt.Sprintf("2. 针对“%s”准备对比说明与权益口径，电话/微信复述确认是否消除顾虑。", topic))
	} else {
		lines = append(lines, "2. 回访补充客户预算、购车决策人及付款方式信息，完善成交条件（待确认）。")
	}

	switch {
	case strings.Contains(facts.TradeIn, "是"):
		lines = append(lines, "3. 邀请到店做旧车评估并预估置换补贴，形成总价方案推进成交。")
	case intent == "高":
		lines = append(lines, "3. 推进本周末到店试驾并锁定配置，跟进订车节点。")
	default:
		lines = append(lines, "3. 保持每周一次触达，优先确认试驾意愿与时间窗口。")
	}

	if len(lines) > 3 {
		lines = lines[:3]
	}
	return Title + "\n" + strings.Join(lines, "\n")
}

// FormatError reports a malformed plan structure. Build and ParseItems
// ship together, so a mismatch is an internal defect, not bad input.
type FormatError struct {
	Plan string
}

func (e *FormatError) Error() string {
	return "follow-up plan format invalid"
}

// Items is the result of re-parsing a plan for structural validation.
type Items struct {
	TitleOK     bool
	Items       []string
	InvalidMore bool
}

// ParseItems re-splits plan text and checks its structure: first non-blank
// line must equal Title, items are lines numbered 1–3, and any 4.–9. line
// marks a drifted plan.
func ParseItems(text string) Items {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimSpace(strings.TrimSuffix(l, "\r"))
		if l != "" {
			lines = append(lines, l)
		}
	}

	var out Items
	if len(lines) == 0 {
		return out
	}
	out.TitleOK = lines[0] == Title
	for _, l := range lines {
		if itemPattern.MatchString(l) {
			out.Items = append(out.Items, l)
		}
		if overrunPattern.MatchString(l) {
			out.InvalidMore = true
		}
	}
	return out
}

// Valid reports whether the parsed structure meets the plan contract.
func (it Items) Valid() bool {
	return it.TitleOK && len(it.Items) >= 1 && len(it.Items) <= 3 && !it.InvalidMore
}
