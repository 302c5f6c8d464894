// Package adapters はjobstateフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"errors"
	"time"

	"stock_crawler/internal/feature/jobstate/domain/entity"
	"stock_crawler/internal/feature/jobstate/usecase"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// JobStateModel はcrawl_job_statesテーブルのGORMモデルです。
// symbolのユニークインデックスにより1シンボル1行を保証します。
type JobStateModel struct {
	ID                      uint   `gorm:"primaryKey"`
	Symbol                  string `gorm:"size:64;not null;uniqueIndex"`
	LastSyncStatus          string `gorm:"size:16;not null"`
	LastSuccessfulTimestamp *time.Time
	ErrorLog                *string `gorm:"type:text"`
	UpdatedAt               time.Time
}

func (JobStateModel) TableName() string { return "crawl_job_states" }

type jobStateGorm struct {
	db *gorm.DB
}

var _ usecase.JobStateStore = (*jobStateGorm)(nil)

// NewJobStateRepository は指定されたDB接続でJobStateStoreを生成します。
func NewJobStateRepository(db *gorm.DB) *jobStateGorm {
	return &jobStateGorm{db: db}
}

// Get はシンボルのジョブ状態を返します。存在しない場合はfalseを返します。
func (r *jobStateGorm) Get(ctx context.Context, symbol string) (entity.JobState, bool, error) {
	var m JobStateModel
	err := r.db.WithContext(ctx).Where("symbol = ?", symbol).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entity.JobState{}, false, nil
	}
	if err != nil {
		return entity.JobState{}, false, err
	}
	return toEntity(m), true, nil
}

// Upsert はsymbolをキーにジョブ状態を挿入または更新します。
func (r *jobStateGorm) Upsert(ctx context.Context, s entity.JobState) error {
	m := JobStateModel{
		Symbol:                  s.Symbol,
		LastSyncStatus:          string(s.LastSyncStatus),
		LastSuccessfulTimestamp: s.LastSuccessfulAt,
		ErrorLog:                s.ErrorLog,
		UpdatedAt:               s.UpdatedAt,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_sync_status", "last_successful_timestamp", "error_log", "updated_at"}),
		}).
		Create(&m).Error
}

// List はすべてのジョブ状態をsymbol順に返します。
func (r *jobStateGorm) List(ctx context.Context) ([]entity.JobState, error) {
	var rows []JobStateModel
	if err := r.db.WithContext(ctx).Order("symbol ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.JobState, 0, len(rows))
	for _, m := range rows {
		out = append(out, toEntity(m))
	}
	return out, nil
}

func toEntity(m JobStateModel) entity.JobState {
	s := entity.JobState{
		Symbol:         m.Symbol,
		LastSyncStatus: entity.JobStatus(m.LastSyncStatus),
		ErrorLog:       m.ErrorLog,
		UpdatedAt:      m.UpdatedAt.UTC(),
	}
	if m.LastSuccessfulTimestamp != nil {
		ts := m.LastSuccessfulTimestamp.UTC()
		s.LastSuccessfulAt = &ts
	}
	return s
}
