package db

import (
	"time"

	"gorm.io/datatypes"
)

// FormDefinition 定义一个通过 Slug 访问的公开表单
type FormDefinition struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	Name           string      `gorm:"size:150;not null" json:"name"`
	Slug           string      `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	Description    string      `gorm:"type:text" json:"description"`
	SuccessMessage string      `gorm:"size:500" json:"success_message"`
	IsActive       bool        `gorm:"not null" json:"is_active"`
	Fields         []FormField `gorm:"foreignKey:FormID" json:"fields"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// FieldOption 下拉、单选或多选字段的一个选项
type FieldOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// ValidationRules 字段附带的校验规则
type ValidationRules struct {
	MinLength *int   `json:"minLength,omitempty"`
	MaxLength *int   `json:"maxLength,omitempty"`
	Pattern   string `json:"pattern,omitempty"`
	Accept    string `json:"accept,omitempty"`
}

// FormField 按 FieldOrder 升序渲染，Name 为提交数据的键，在同一表单内唯一
type FormField struct {
	ID              uint                                `gorm:"primaryKey" json:"id"`
	FormID          uint                                `gorm:"not null;uniqueIndex:idx_form_fields_form_name,priority:1" json:"form_id"`
	Label           string                              `gorm:"size:150;not null" json:"label"`
	Name            string                              `gorm:"size:100;not null;uniqueIndex:idx_form_fields_form_name,priority:2" json:"name"`
	Type            string                              `gorm:"size:20;not null" json:"type"`
	Required        bool                                `gorm:"not null" json:"required"`
	FieldOrder      int                                 `gorm:"not null;default:0" json:"field_order"`
	Options         datatypes.JSONSlice[FieldOption]    `json:"options"`
	ValidationRules datatypes.JSONType[ValidationRules] `json:"validation_rules"`
	DefaultValue    string                              `gorm:"size:500" json:"default_value"`
	HelpText        string                              `gorm:"size:500" json:"help_text"`
	MaxLength       *int                                `json:"max_length"`
	MinLength       *int                                `json:"min_length"`
}

// FormSubmission 保存一次通过校验的公开提交
type FormSubmission struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	FormID    uint              `gorm:"not null;index" json:"form_id"`
	Data      datatypes.JSONMap `json:"data"`
	IP        string            `gorm:"size:64" json:"ip"`
	UserAgent string            `gorm:"size:255" json:"user_agent"`
	CreatedAt time.Time         `json:"created_at"`
}
