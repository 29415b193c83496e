package repository

import (
	"testing"

	"CipherChat/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestTransition(t *testing.T) {
	tests := []struct {
		name    string
		edge    model.RelationEdge
		wantErr error
	}{
		{
			name:    "pending_conflicts",
			edge:    model.RelationEdge{UserLow: "u1", UserHigh: "u2", State: model.RelationStatePending, InitiatorUuid: "u1"},
			wantErr: ErrEdgeConflict,
		},
		{
			name:    "accepted_conflicts",
			edge:    model.RelationEdge{UserLow: "u1", UserHigh: "u2", State: model.RelationStateAccepted},
			wantErr: ErrEdgeConflict,
		},
		{
			name: "blocked_accepted_conflicts",
			// 拉黑不改变生命周期状态，被拉黑的 accepted 边同样不允许重复发起
			edge:    model.RelationEdge{UserLow: "u1", UserHigh: "u2", State: model.RelationStateAccepted, LowBlockedHigh: true},
			wantErr: ErrEdgeConflict,
		},
		{
			name: "rejected_is_recyclable",
			edge: model.RelationEdge{UserLow: "u1", UserHigh: "u2", State: model.RelationStateRejected, InitiatorUuid: "u1"},
		},
		{
			name: "deleted_is_recyclable",
			edge: model.RelationEdge{UserLow: "u1", UserHigh: "u2", State: model.RelationStateDeleted, RemovedBy: "u2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := requestTransition(&tt.edge)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRecycleToPending(t *testing.T) {
	// 带拉黑标志和墓碑的终态边复用后必须是干净的 pending 边
	edge := model.RelationEdge{
		UserLow:        "u1",
		UserHigh:       "u2",
		State:          model.RelationStateDeleted,
		InitiatorUuid:  "u2",
		RemovedBy:      "u2",
		LowBlockedHigh: true,
		HighBlockedLow: true,
	}

	fresh := recycleToPending(edge, "u1")
	assert.Equal(t, model.RelationStatePending, fresh.State)
	assert.Equal(t, "u1", fresh.InitiatorUuid)
	assert.Empty(t, fresh.RemovedBy)
	assert.False(t, fresh.LowBlockedHigh)
	assert.False(t, fresh.HighBlockedLow)

	// 复用后双方视角回到全新请求
	assert.Equal(t, model.ViewOutgoingRequest, fresh.ViewFor("u1"))
	assert.Equal(t, model.ViewIncomingRequest, fresh.ViewFor("u2"))
}

func TestRemoveTransition(t *testing.T) {
	tests := []struct {
		name  string
		edge  *model.RelationEdge
		owner string
		want  removeAction
	}{
		{
			name:  "missing_edge_noop",
			edge:  nil,
			owner: "u1",
			want:  removeNoop,
		},
		{
			name:  "pending_retracted_by_initiator",
			edge:  &model.RelationEdge{UserLow: "u1", UserHigh: "u2", State: model.RelationStatePending, InitiatorUuid: "u1"},
			owner: "u1",
			want:  removeDeleteRow,
		},
		{
			name: "pending_retracted_by_receiver",
			// 收到请求的一方删除同样整体撤回
			edge:  &model.RelationEdge{UserLow: "u1", UserHigh: "u2", State: model.RelationStatePending, InitiatorUuid: "u1"},
			owner: "u2",
			want:  removeDeleteRow,
		},
		{
			name:  "accepted_leaves_tombstone",
			edge:  &model.RelationEdge{UserLow: "u1", UserHigh: "u2", State: model.RelationStateAccepted},
			owner: "u1",
			want:  removeTombstone,
		},
		{
			name:  "rejected_leaves_tombstone",
			edge:  &model.RelationEdge{UserLow: "u1", UserHigh: "u2", State: model.RelationStateRejected, InitiatorUuid: "u2"},
			owner: "u1",
			want:  removeTombstone,
		},
		{
			name:  "own_tombstone_noop",
			edge:  &model.RelationEdge{UserLow: "u1", UserHigh: "u2", State: model.RelationStateDeleted, RemovedBy: "u1"},
			owner: "u1",
			want:  removeNoop,
		},
		{
			name: "mutual_delete_collapses",
			// 对方删的墓碑再删一次，整行消失，双方回到无关系
			edge:  &model.RelationEdge{UserLow: "u1", UserHigh: "u2", State: model.RelationStateDeleted, RemovedBy: "u2"},
			owner: "u1",
			want:  removeDeleteRow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, removeTransition(tt.edge, tt.owner))
		})
	}
}

func TestBlockTransition(t *testing.T) {
	accepted := func(lowBlocksHigh, highBlocksLow bool) *model.RelationEdge {
		return &model.RelationEdge{
			UserLow:        "u1",
			UserHigh:       "u2",
			State:          model.RelationStateAccepted,
			LowBlockedHigh: lowBlocksHigh,
			HighBlockedLow: highBlocksLow,
		}
	}

	tests := []struct {
		name      string
		edge      *model.RelationEdge
		owner     string
		blocked   bool
		wantApply bool
		wantErr   error
	}{
		{
			name:    "block_missing_edge",
			edge:    nil,
			owner:   "u1",
			blocked: true,
			wantErr: ErrEdgeNotAccepted,
		},
		{
			name:    "unblock_missing_edge_noop",
			edge:    nil,
			owner:   "u1",
			blocked: false,
		},
		{
			name:    "block_requires_accepted",
			edge:    &model.RelationEdge{UserLow: "u1", UserHigh: "u2", State: model.RelationStatePending, InitiatorUuid: "u1"},
			owner:   "u1",
			blocked: true,
			wantErr: ErrEdgeNotAccepted,
		},
		{
			name:      "block_applies",
			edge:      accepted(false, false),
			owner:     "u1",
			blocked:   true,
			wantApply: true,
		},
		{
			name:    "block_already_blocked_noop",
			edge:    accepted(true, false),
			owner:   "u1",
			blocked: true,
		},
		{
			name:    "unblock_not_blocked_noop",
			edge:    accepted(false, false),
			owner:   "u1",
			blocked: false,
		},
		{
			name:      "unblock_applies",
			edge:      accepted(true, false),
			owner:     "u1",
			blocked:   false,
			wantApply: true,
		},
		{
			name: "mutual_block_applies_for_second_side",
			// 双向拉黑可表达：对方已拉黑不影响本侧标志的切换
			edge:      accepted(true, false),
			owner:     "u2",
			blocked:   true,
			wantApply: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apply, err := blockTransition(tt.edge, tt.owner, tt.blocked)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.False(t, apply)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantApply, apply)
		})
	}
}
