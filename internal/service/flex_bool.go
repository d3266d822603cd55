package service

import (
	"bytes"
	"encoding/json"
	"strings"
)

// FlexBool 兼容布尔值与字符串 "true" 的开关字段，其余取值一律视为 false
type FlexBool bool

// UnmarshalJSON 实现 json.Unmarshaler
func (b *FlexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*b = false
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*b = FlexBool(strings.TrimSpace(s) == "true")
		return nil
	}
	var v bool
	if err := json.Unmarshal(data, &v); err != nil {
		*b = false
		return nil
	}
	*b = FlexBool(v)
	return nil
}

// Bool 返回原生布尔值
func (b FlexBool) Bool() bool {
	return bool(b)
}
