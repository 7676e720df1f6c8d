package workflow

import (
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	maxItemNameLen   = 200
	maxItemDescLen   = 500
	maxItemSerialLen = 100
)

// ItemInput 原始清单条目（来自请求体）
type ItemInput struct {
	ItemName       string           `json:"itemName"`
	Description    string           `json:"description"`
	SerialNumber   string           `json:"serialNumber"`
	Quantity       int              `json:"quantity"`
	EstimatedValue *decimal.Decimal `json:"estimatedValue"`
}

// Item 校验并归一化后的条目
type Item struct {
	ItemName       string
	Description    string
	SerialNumber   string
	Quantity       int
	EstimatedValue *decimal.Decimal
}

// NormalizeItems 清单校验：拒空列表，逐条裁剪并检查长度/数量/估值，
// 返回保持原顺序的归一化列表。出错时指明条目下标和字段。
func NormalizeItems(in []ItemInput) ([]Item, error) {
	if len(in) == 0 {
		return nil, newFieldError("items", "at least one item is required")
	}
	out := make([]Item, 0, len(in))
	for i, raw := range in {
		name := strings.TrimSpace(raw.ItemName)
		if name == "" {
			return nil, newItemError(i, "itemName", "required")
		}
		// 限长按字符数而非字节数，多字节文字不吃亏
		if utf8.RuneCountInString(name) > maxItemNameLen {
			return nil, newItemError(i, "itemName", "must be at most 200 characters")
		}
		desc := strings.TrimSpace(raw.Description)
		if utf8.RuneCountInString(desc) > maxItemDescLen {
			return nil, newItemError(i, "description", "must be at most 500 characters")
		}
		serial := strings.TrimSpace(raw.SerialNumber)
		if utf8.RuneCountInString(serial) > maxItemSerialLen {
			return nil, newItemError(i, "serialNumber", "must be at most 100 characters")
		}
		if raw.Quantity < 1 {
			return nil, newItemError(i, "quantity", "must be at least 1")
		}
		var value *decimal.Decimal
		if raw.EstimatedValue != nil {
			if raw.EstimatedValue.IsNegative() {
				return nil, newItemError(i, "estimatedValue", "must not be negative")
			}
			v := *raw.EstimatedValue
			value = &v
		}
		out = append(out, Item{
			ItemName:       name,
			Description:    desc,
			SerialNumber:   serial,
			Quantity:       raw.Quantity,
			EstimatedValue: value,
		})
	}
	return out, nil
}

// TotalQuantity 清单总件数
func TotalQuantity(items []Item) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

// TotalValue 清单估值合计 = Σ(单价 × 数量)，缺省估值按 0 计
func TotalValue(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		if it.EstimatedValue != nil {
			total = total.Add(it.EstimatedValue.Mul(decimal.NewFromInt(int64(it.Quantity))))
		}
	}
	return total
}
