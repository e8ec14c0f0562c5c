package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/wahaj/securevault/internal/common"
	"github.com/wahaj/securevault/internal/models"
)

// SyncStatus is the overall outcome of a Sync call.
type SyncStatus string

const (
	SyncSucceeded SyncStatus = "succeeded"
	SyncSkipped   SyncStatus = "skipped"
	SyncFailed    SyncStatus = "failed"
)

// SyncReason refines a skipped or failed status.
type SyncReason string

const (
	ReasonOffline    SyncReason = "offline"
	ReasonInProgress SyncReason = "already_in_progress"
	ReasonNetwork    SyncReason = "network"
	ReasonAuth       SyncReason = "auth"
	ReasonPartial    SyncReason = "partial"
)

// SyncResult reports what a sync pass did. Conflicts counts remote versions
// that overwrote a diverged local record under last-write-wins; that is
// informational, not an error.
type SyncResult struct {
	Status    SyncStatus
	Reason    SyncReason
	Pulled    int
	Pushed    int
	Conflicts int
}

// Sync reconciles the local collection with the remote store.
//
// The merge is last-write-wins per record: the remote version replaces the
// local one only when its UpdatedAt is strictly greater; ties keep the
// local record. Local records the remote lacks, or that are strictly newer
// locally, are pushed back. The merged collection is computed aside and
// swapped in atomically, so a cancelled or failed pass never exposes a
// half-merged state; after the swap the local state only ever improved, so
// a failed push leaves it in place and a retry converges, because the
// merge is idempotent and commutative per record.
//
// lastSyncTimestamp advances only after the full round-trip, pushes and
// local persistence included.
func (v *Vault) Sync(ctx context.Context) (SyncResult, error) {
	if v.gateway == nil {
		return SyncResult{Status: SyncSkipped, Reason: ReasonOffline}, nil
	}
	if !v.session.CanSync() {
		v.log.Info(ctx, "sync skipped: not authenticated or offline")
		return SyncResult{Status: SyncSkipped, Reason: ReasonOffline}, nil
	}

	v.mu.Lock()
	if v.syncing {
		v.mu.Unlock()
		return SyncResult{Status: SyncSkipped, Reason: ReasonInProgress}, common.ErrSyncInProgress
	}
	v.syncing = true
	v.loading++
	v.mu.Unlock()

	defer func() {
		v.mu.Lock()
		v.syncing = false
		v.loading--
		v.mu.Unlock()
	}()

	remote, err := v.gateway.FetchAll(ctx)
	if err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			v.session.Invalidate(ctx)
			return SyncResult{Status: SyncFailed, Reason: ReasonAuth},
				fmt.Errorf("%w: %v", common.ErrAuthRequired, err)
		}
		v.log.Warn(ctx, "sync fetch failed", "error", err)
		return SyncResult{Status: SyncFailed, Reason: ReasonNetwork}, err
	}

	merged, plan := v.merge(remote)
	v.swapMerged(merged)
	v.notify(Event{Op: OpReplace})

	result := SyncResult{
		Status:    SyncSucceeded,
		Pulled:    plan.pulled,
		Conflicts: plan.conflicts,
	}

	pushErr := v.push(ctx, plan, &result)
	if pushErr != nil {
		if errors.Is(pushErr, common.ErrUnauthorized) {
			v.session.Invalidate(ctx)
		}
		// merged local state stays; it is never worse than before the pass
		if err := v.SaveToStorage(ctx); err != nil {
			v.log.Error(ctx, "failed to persist after partial sync", "error", err)
		}
		v.log.Warn(ctx, "sync incomplete, will retry", "pushed", result.Pushed, "error", pushErr)
		return SyncResult{Status: SyncFailed, Reason: ReasonPartial, Pulled: result.Pulled,
			Pushed: result.Pushed, Conflicts: result.Conflicts}, pushErr
	}

	v.mu.Lock()
	prevLastSync := v.lastSync
	v.lastSync = v.clock().UTC()
	v.mu.Unlock()

	if err := v.SaveToStorage(ctx); err != nil {
		// the stamp must not claim a round-trip the disk never saw
		v.mu.Lock()
		v.lastSync = prevLastSync
		v.mu.Unlock()
		return SyncResult{Status: SyncFailed, Reason: ReasonPartial, Pulled: result.Pulled,
			Pushed: result.Pushed, Conflicts: result.Conflicts}, err
	}

	v.log.Info(ctx, "sync finished",
		"pulled", result.Pulled, "pushed", result.Pushed, "conflicts", result.Conflicts)
	return result, nil
}

// swapMerged installs the merged collection. The LWW rule is re-applied per
// record under the write lock before the swap, so a mutation that committed
// while the merge was being computed is never discarded.
func (v *Vault) swapMerged(merged map[string]models.Credential) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for id, local := range v.records {
		cur, ok := merged[id]
		if !ok || local.UpdatedAt.After(cur.UpdatedAt) {
			merged[id] = local.Clone()
		}
	}
	v.records = merged
}

// mergePlan lists the records to push after a merge pass.
type mergePlan struct {
	creates   []models.Credential
	updates   []models.Credential
	pulled    int
	conflicts int
}

// merge folds the remote snapshot over the current local collection into a
// fresh map. Pure with respect to v.records; callers swap the result in.
func (v *Vault) merge(remote []models.Credential) (map[string]models.Credential, mergePlan) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var plan mergePlan
	merged := make(map[string]models.Credential, len(v.records)+len(remote))
	remoteIDs := make(map[string]struct{}, len(remote))

	for _, r := range remote {
		remoteIDs[r.ID] = struct{}{}
		local, ok := v.records[r.ID]
		switch {
		case !ok:
			merged[r.ID] = r.Clone()
			plan.pulled++
		case r.UpdatedAt.After(local.UpdatedAt):
			merged[r.ID] = r.Clone()
			plan.pulled++
			plan.conflicts++
		default:
			merged[r.ID] = local.Clone()
			if local.UpdatedAt.After(r.UpdatedAt) {
				plan.updates = append(plan.updates, local.Clone())
			}
		}
	}

	for id, local := range v.records {
		if _, ok := remoteIDs[id]; ok {
			continue
		}
		merged[id] = local.Clone()
		plan.creates = append(plan.creates, local.Clone())
	}
	return merged, plan
}

// push sends local-only records and locally-newer versions to the remote,
// updating result.Pushed as it goes. The first failure aborts the pass.
func (v *Vault) push(ctx context.Context, plan mergePlan, result *SyncResult) error {
	for _, c := range plan.creates {
		if _, err := v.gateway.Create(ctx, c); err != nil {
			return fmt.Errorf("push create %q: %w", c.ID, err)
		}
		result.Pushed++
	}
	for _, c := range plan.updates {
		if _, err := v.gateway.Update(ctx, c); err != nil {
			return fmt.Errorf("push update %q: %w", c.ID, err)
		}
		result.Pushed++
	}
	return nil
}
