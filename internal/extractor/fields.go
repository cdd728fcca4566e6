package extractor

import (
	"hr-agent-go/internal/types"
)

// 职位请求正文中各字段的标签拼写变体，按优先级排列
var (
	clientField      = NewTextField("Cliente", "Empresa", "Company", "Client")
	responsibleField = NewTextField("Responsable", "Contacto", "Contact")
	phoneField       = NewPhoneField("Teléfono", "Telefono", "Tel", "Phone", "Celular")
	technologyField  = NewTextField("Tecnología", "Tecnologia", "Technology", "Stack")
)

// ExtractJobRequestFields 从职位请求消息正文中提取结构化字段。
// techHint 取自主题行 -JD 前的词，在正文未命中技术栈时作为兜底。
func ExtractJobRequestFields(body, techHint string) types.JobRequestFields {
	fields := types.JobRequestFields{
		ClientName:   clientField.Extract(body),
		Responsible:  responsibleField.Extract(body),
		Phone:        phoneField.Extract(body),
		PositionType: DetectPositionType(body),
	}

	if tech := technologyField.Extract(body); tech != nil {
		fields.Technology = tech
	} else if detected := DetectTechnology(body); detected != nil {
		fields.Technology = detected
	} else if hint := sanitize(techHint); len(hint) > 2 {
		fields.Technology = &hint
	}

	return fields
}
