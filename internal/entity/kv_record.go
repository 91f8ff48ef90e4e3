package entity

import "time"

// KvRecord is the Postgres shape of the keyed storage: one row per key.
// Usage ledgers and result caches all share this table, distinguished
// only by their key prefixes.
type KvRecord struct {
	Key       string    `gorm:"primaryKey;column:key;size:512"`
	Value     string    `gorm:"type:text"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (KvRecord) TableName() string {
	return "kv_records"
}
