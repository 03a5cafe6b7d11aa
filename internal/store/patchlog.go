package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"taskboard/internal/model"
)

// PatchRecord is one applied patch, as kept in the patch log.
type PatchRecord struct {
	ID        string      `json:"id"`
	TaskID    string      `json:"taskId"`
	Patch     model.Patch `json:"patch"`
	Cascaded  int         `json:"cascaded"`
	AppliedAt time.Time   `json:"appliedAt"`
}

func appendPatchLog(ctx context.Context, x execer, taskID string, p model.Patch, cascaded int, now time.Time) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = x.ExecContext(ctx, `INSERT INTO patch_log(patch_id, task_id, patch_json, cascaded, applied_at_unixms) VALUES(?, ?, ?, ?, ?)`,
		uuid.NewString(), taskID, string(raw), cascaded, now.UnixMilli())
	return err
}

// ReadPatchLog returns the most recent limit patches (all when limit <= 0),
// oldest first. A non-empty taskID restricts the log to that task.
func (s Store) ReadPatchLog(ctx context.Context, taskID string, limit int) ([]PatchRecord, error) {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	q := `SELECT patch_id, task_id, patch_json, cascaded, applied_at_unixms FROM patch_log`
	args := []any{}
	if taskID != "" {
		q += ` WHERE task_id = ?`
		args = append(args, taskID)
	}
	q += ` ORDER BY applied_at_unixms DESC, rowid DESC`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []PatchRecord{}
	for rows.Next() {
		var rec PatchRecord
		var js string
		var ms int64
		if err := rows.Scan(&rec.ID, &rec.TaskID, &js, &rec.Cascaded, &ms); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(js), &rec.Patch)
		rec.AppliedAt = time.UnixMilli(ms).UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
