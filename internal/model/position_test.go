package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestLockedPositionIsExpired(t *testing.T) {
	unlock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	lock := LockedPosition{LockID: "7", UnlockDate: unlock}

	if lock.IsExpired(unlock.Add(-time.Second)) {
		t.Fatalf("lock should not be expired before unlock date")
	}
	if !lock.IsExpired(unlock) {
		t.Fatalf("lock should be expired at unlock date")
	}
}

func TestLockedPositionJSONComputesExpiry(t *testing.T) {
	past := LockedPosition{LockID: "1", UnlockDate: time.Now().Add(-time.Hour), Enrichment: EnrichmentResolved}
	future := LockedPosition{LockID: "2", UnlockDate: time.Now().Add(time.Hour), Enrichment: EnrichmentPlaceholder}

	for _, tc := range []struct {
		lock LockedPosition
		want bool
	}{{past, true}, {future, false}} {
		data, err := json.Marshal(tc.lock)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		var decoded map[string]interface{}
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		if decoded["is_expired"] != tc.want {
			t.Fatalf("lock %s: is_expired = %v, want %v", tc.lock.LockID, decoded["is_expired"], tc.want)
		}
		if decoded["lock_id"] != tc.lock.LockID {
			t.Fatalf("lock_id missing from %s", data)
		}
	}
}

func TestLockRequestUnlockDate(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	req := LockRequest{DurationDays: 30}
	if got := req.UnlockDate(now); got != 1_700_000_000+30*86400 {
		t.Fatalf("unexpected unlock date %d", got)
	}
}

func TestPoolRecordDefaultsStage(t *testing.T) {
	var record PoolRecord
	if err := json.Unmarshal([]byte(`{"id":"a","user_id":"u","token_amount":"1","native_amount":"2"}`), &record); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if record.Stage != StagePrepared {
		t.Fatalf("expected prepared stage, got %q", record.Stage)
	}
	if record.NativeAmount.String() != "2" {
		t.Fatalf("unexpected native amount %s", record.NativeAmount)
	}
}
