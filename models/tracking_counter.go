package models

const TrackingCounterTable = "ep_tracking_counters"

// TrackingCounter 按日原子自增的追踪号序列
type TrackingCounter struct {
	Day string `gorm:"primaryKey;size:8"` // YYYYMMDD
	Seq int64  `gorm:"not null;default:0"`
}

func (TrackingCounter) TableName() string { return TrackingCounterTable }
