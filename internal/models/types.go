package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSON 任意结构的 JSON 列，仅用于审计载荷等不透明数据
type JSON map[string]interface{}

// Value 实现 driver.Valuer 接口
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return marshalColumn(j)
}

// Scan 实现 sql.Scanner 接口
func (j *JSON) Scan(value interface{}) error {
	*j = JSON{}
	return scanColumn(value, j)
}

// StringArray 字符串数组列（照片 URL 等）
type StringArray []string

// Value 实现 driver.Valuer 接口
func (s StringArray) Value() (driver.Value, error) {
	if s == nil {
		return marshalColumn([]string{})
	}
	return marshalColumn([]string(s))
}

// Scan 实现 sql.Scanner 接口
func (s *StringArray) Scan(value interface{}) error {
	*s = StringArray{}
	return scanColumn(value, s)
}

// IntArray 整数数组列
type IntArray []int

// Value 实现 driver.Valuer 接口
func (a IntArray) Value() (driver.Value, error) {
	if a == nil {
		return marshalColumn([]int{})
	}
	return marshalColumn([]int(a))
}

// Scan 实现 sql.Scanner 接口
func (a *IntArray) Scan(value interface{}) error {
	*a = IntArray{}
	return scanColumn(value, a)
}

// Contains 判断是否包含指定值
func (a IntArray) Contains(v int) bool {
	for _, item := range a {
		if item == v {
			return true
		}
	}
	return false
}

// GeoPoint 坐标
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Value 实现 driver.Valuer 接口
func (p GeoPoint) Value() (driver.Value, error) {
	return marshalColumn(p)
}

// Scan 实现 sql.Scanner 接口
func (p *GeoPoint) Scan(value interface{}) error {
	return scanColumn(value, p)
}

// marshalColumn 统一以文本写入，兼容 sqlite 与 postgres
func marshalColumn(v interface{}) (driver.Value, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(body), nil
}

func scanColumn(value interface{}, dest interface{}) error {
	var body []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		body = v
	case string:
		body = []byte(v)
	default:
		return fmt.Errorf("unsupported json column type %T", value)
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, dest)
}
