package extract

const systemPrompt = `只返回严格JSON，不要markdown`

const userPromptFormat = `你是销售通话抽取器。仅输出JSON。
Schema必须包含: schema_version, session_id, facts, concerns, objections, conclusions, evidence_index。
规则: 缺失字段填unknown；禁止编造；每个concerns/objections/conclusions条目必须有evidence数组，且每条evidence至少包含 action_key/action_label/action_group/manual_note/material_sent/stay_ms之一。
输入:%s`
