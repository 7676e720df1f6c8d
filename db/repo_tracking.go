package db

import (
	"context"
	"fmt"

	"exit_permit_tool/models"
)

// NextTrackingSeq 实现 workflow.Sequencer：
// 按日计数行做 upsert 自增，同一天内并发创建拿到的序号互不相同。
// 真正的唯一性由 tracking_number 的唯一索引兜底。
func (r *Repo) NextTrackingSeq(ctx context.Context, day string) (int64, error) {
	var seq int64
	err := r.DB.WithContext(ctx).Raw(fmt.Sprintf(`
	  INSERT INTO %s (day, seq) VALUES (?, 1)
	  ON CONFLICT (day) DO UPDATE SET seq = %s.seq + 1
	  RETURNING seq;
	`, models.TrackingCounterTable, models.TrackingCounterTable), day).Scan(&seq).Error
	if err != nil {
		return 0, err
	}
	return seq, nil
}
