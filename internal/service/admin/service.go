package admin

import (
	"context"
	"math"
	"strconv"
	"time"

	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oggyb/chatible/internal/app"
	svcErr "github.com/oggyb/chatible/internal/errors"
	"github.com/oggyb/chatible/internal/logger"
	"github.com/oggyb/chatible/internal/repository"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// Sweeper runs one timeout sweep and reports how many users it evicted.
type Sweeper interface {
	Sweep(ctx context.Context) int
}

// Service implements the admin gRPC API on top of the shared repository.
// Each method corresponds to an RPC in AdminServiceDesc.
type Service struct {
	appCtx  *app.AppContext
	chats   *repository.ChatRepository
	sweeper Sweeper
}

// NewAdminService creates the admin service with dependencies from AppContext.
func NewAdminService(appCtx *app.AppContext, sweeper Sweeper) *Service {
	return &Service{
		appCtx:  appCtx,
		chats:   appCtx.Chats,
		sweeper: sweeper,
	}
}

// ResetAll clears profiles, the waiting pool, pairings, last partners and
// the profile cache.
func (s *Service) ResetAll(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	s.appCtx.Logger.Debug("ResetAll called")

	if err := s.chats.ResetAll(ctx); err != nil {
		s.appCtx.Logger.Error("ResetAll failed", "err", err)
		return nil, svcErr.Map(err)
	}

	s.appCtx.Logger.Info("admin.reset")
	return &emptypb.Empty{}, nil
}

// Stats returns the size of every collection.
//
// Example response:
//
//	{"profiles": 20, "waiting": 5, "pairings": 2}
func (s *Service) Stats(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	st, err := s.chats.Stats(ctx)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return structpb.NewStruct(map[string]any{
		"profiles": st.Profiles,
		"waiting":  st.Waiting,
		"pairings": st.Pairings,
	})
}

// Sweep runs a timeout sweep right away.
func (s *Service) Sweep(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	start := time.Now()
	n := s.sweeper.Sweep(ctx)
	s.appCtx.Logger.Info("admin.sweep", "evicted", n, "took", logger.Since(start))
	return structpb.NewStruct(map[string]any{"evicted": n})
}

// ListWaiting returns one page of the waiting pool in queue order.
//
// Behavior:
//   - "limit" defaults to 50 and is capped at 500.
//   - "page_token" continues from a previous response's "next_page_token".
//   - Each entry carries seq, user_id, gender and enqueued_at (RFC 3339).
func (s *Service) ListWaiting(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()

	limit := defaultPageSize
	if v, ok := fields["limit"]; ok {
		n := v.GetNumberValue()
		if _, isNum := v.GetKind().(*structpb.Value_NumberValue); !isNum || n < 1 || n != math.Trunc(n) {
			return nil, svcErr.InvalidArgument("limit must be a positive integer")
		}
		limit = min(int(n), maxPageSize)
	}

	var token *string
	if v, ok := fields["page_token"]; ok {
		t := v.GetStringValue()
		token = &t
	}

	s.appCtx.Logger.Debug("ListWaiting called", "limit", limit, "token", token != nil)

	entries, next, err := s.chats.ListWaitingPage(ctx, token, limit)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	list := make([]any, 0, len(entries))
	for _, e := range entries {
		list = append(list, map[string]any{
			"seq":         strconv.FormatUint(e.Seq, 10),
			"user_id":     e.UserID,
			"gender":      string(e.Gender),
			"enqueued_at": e.EnqueuedAt.UTC().Format(time.RFC3339),
		})
	}

	resp := map[string]any{"entries": list}
	if next != nil {
		resp["next_page_token"] = *next
	}
	return structpb.NewStruct(resp)
}
