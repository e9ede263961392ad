package datastore

import (
	"fmt"

	"github.com/ethpandaops/harnessoor/pkg/classifier"
)

// DataTable is the name of the table holding the dataset.
const DataTable = "data"

// Row is one persisted HarnessRecord.
type Row struct {
	FileCode         string  `gorm:"column:file_code;type:text"`
	SubsystemPath    string  `gorm:"column:subsystem_path;type:text"`
	ToolchainVersion string  `gorm:"column:toolchain_version;type:text"`
	HarnessType      string  `gorm:"column:harness_type;type:text"`
	FileName         string  `gorm:"column:file_name;type:text;not null"`
	RuntimeSeconds   float64 `gorm:"column:runtime_seconds"`
	MemoryKB         int64   `gorm:"column:memory_kb"`
	CodeFileSize     int64   `gorm:"column:code_file_size"`
	HarnessFileSize  int64   `gorm:"column:harness_file_size"`
	RuntimeError     bool    `gorm:"column:runtime_error"`
	TimedOut         bool    `gorm:"column:timed_out"`
	// HarnessSuccess is "true", "false" or "FAILED LINK".
	HarnessSuccess string `gorm:"column:harness_success;type:text"`
}

// TableName implements gorm's tabler interface.
func (Row) TableName() string {
	return DataTable
}

func rowFromRecord(rec *classifier.HarnessRecord) *Row {
	return &Row{
		FileCode:         rec.FileCode,
		SubsystemPath:    rec.SubsystemPath,
		ToolchainVersion: rec.ToolchainVersion,
		HarnessType:      rec.HarnessType,
		FileName:         rec.FileName,
		RuntimeSeconds:   rec.RuntimeSeconds,
		MemoryKB:         rec.MemoryKB,
		CodeFileSize:     rec.CodeFileSize,
		HarnessFileSize:  rec.HarnessFileSize,
		RuntimeError:     rec.RuntimeError,
		TimedOut:         rec.TimedOut,
		HarnessSuccess:   rec.HarnessSuccess.String(),
	}
}

func (r *Row) record() (*classifier.HarnessRecord, error) {
	outcome, err := classifier.ParseHarnessOutcome(r.HarnessSuccess)
	if err != nil {
		return nil, fmt.Errorf("row %s: %w", r.FileName, err)
	}

	return &classifier.HarnessRecord{
		FileCode:         r.FileCode,
		SubsystemPath:    r.SubsystemPath,
		ToolchainVersion: r.ToolchainVersion,
		HarnessType:      r.HarnessType,
		FileName:         r.FileName,
		RuntimeSeconds:   r.RuntimeSeconds,
		MemoryKB:         r.MemoryKB,
		CodeFileSize:     r.CodeFileSize,
		HarnessFileSize:  r.HarnessFileSize,
		RuntimeError:     r.RuntimeError,
		TimedOut:         r.TimedOut,
		HarnessSuccess:   outcome,
	}, nil
}
