package workflow

import (
	"fmt"
	"regexp"
	"time"
)

// 追踪号格式：EX-<YYYYMMDD>-<当日序号>，便于电话/纸面核对。
// 序号由存储层按日原子自增；唯一性最终靠 tracking_number 唯一索引兜底。

const trackingDayLayout = "20060102"

var TrackingPattern = regexp.MustCompile(`^EX-\d{8}-\d{4,}$`)

// DayStamp 当日日期戳（UTC）
func DayStamp(t time.Time) string {
	return t.UTC().Format(trackingDayLayout)
}

// FormatTracking 组装追踪号，序号补零到 4 位
func FormatTracking(day string, seq int64) string {
	return fmt.Sprintf("EX-%s-%04d", day, seq)
}
