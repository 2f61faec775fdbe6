package process

import (
	"context"
	"log/slog"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/sagechat-ai/sagechat/app/core"
	"github.com/sagechat-ai/sagechat/pkg/ai"
	"github.com/sagechat-ai/sagechat/pkg/safe"
	"github.com/sagechat-ai/sagechat/pkg/types"
	"github.com/sagechat-ai/sagechat/pkg/utils"
)

var (
	sideEffectProcess *SideEffectProcess
)

// SideEffectProcess 消化聊天请求完成后的旁路任务：
// 记账、会话向量入库、配额快照刷新。
// 这些任务失败只记日志，永远不影响已经返回给用户的回复。
type SideEffectProcess struct {
	concurrency int
	ctx         context.Context
	cancel      context.CancelFunc
	core        *core.Core

	RecordUsageChan  chan *RecordUsageRequest
	StoreVectorChan  chan *StoreVectorRequest
	RefreshQuotaChan chan *RefreshQuotaRequest
}

func StartSideEffectProcess(core *core.Core, concurrency int) context.CancelFunc {
	ctx, cancel := context.WithCancel(context.Background())
	sideEffectProcess = &SideEffectProcess{
		concurrency:      concurrency,
		ctx:              ctx,
		cancel:           cancel,
		core:             core,
		RecordUsageChan:  make(chan *RecordUsageRequest, 10000),
		StoreVectorChan:  make(chan *StoreVectorRequest, 1000),
		RefreshQuotaChan: make(chan *RefreshQuotaRequest, 1000),
	}

	go safe.Run(sideEffectProcess.Start)
	return cancel
}

func (p *SideEffectProcess) Start() {
	for i := 0; i < p.concurrency; i++ {
		go safe.Run(func() {
			p.ProcessLoop()
		})
	}
}

type RecordUsageRequest struct {
	ctx      context.Context
	record   types.UsageRecord
	response chan CommonProcessResponse
}

type StoreVectorRequest struct {
	ctx            context.Context
	userID         string
	conversationID string
	messageID      string
	role           string
	content        string
	response       chan CommonProcessResponse
}

type RefreshQuotaRequest struct {
	ctx      context.Context
	userID   string
	response chan CommonProcessResponse
}

type CommonProcessResponse struct {
	Error error
}

func NewRecordUsageRequest(record types.UsageRecord) chan CommonProcessResponse {
	if sideEffectProcess == nil || sideEffectProcess.ctx.Err() != nil {
		slog.Error("SideEffect Process not working, usage record dropped",
			slog.String("user_id", record.UserID), slog.String("operation", record.Operation))
		return nil
	}

	resp := make(chan CommonProcessResponse, 1)
	sideEffectProcess.RecordUsageChan <- &RecordUsageRequest{
		ctx:      context.Background(),
		record:   record,
		response: resp,
	}
	return resp
}

func NewStoreVectorRequest(userID, conversationID, messageID, role, content string) chan CommonProcessResponse {
	if sideEffectProcess == nil || sideEffectProcess.ctx.Err() != nil {
		slog.Error("SideEffect Process not working, vector storage dropped",
			slog.String("message_id", messageID))
		return nil
	}

	resp := make(chan CommonProcessResponse, 1)
	sideEffectProcess.StoreVectorChan <- &StoreVectorRequest{
		ctx:            context.Background(),
		userID:         userID,
		conversationID: conversationID,
		messageID:      messageID,
		role:           role,
		content:        content,
		response:       resp,
	}
	return resp
}

func NewRefreshQuotaRequest(userID string) chan CommonProcessResponse {
	if sideEffectProcess == nil || sideEffectProcess.ctx.Err() != nil {
		slog.Error("SideEffect Process not working, quota refresh dropped",
			slog.String("user_id", userID))
		return nil
	}

	resp := make(chan CommonProcessResponse, 1)
	sideEffectProcess.RefreshQuotaChan <- &RefreshQuotaRequest{
		ctx:      context.Background(),
		userID:   userID,
		response: resp,
	}
	return resp
}

func (p *SideEffectProcess) ProcessLoop() {
	for {
		select {
		case <-p.ctx.Done():
			return
		case req := <-p.RecordUsageChan:
			if req == nil {
				continue
			}
			req.response <- CommonProcessResponse{
				Error: p.RecordUsage(req),
			}
		case req := <-p.StoreVectorChan:
			if req == nil {
				continue
			}
			req.response <- CommonProcessResponse{
				Error: p.StoreVector(req),
			}
		case req := <-p.RefreshQuotaChan:
			if req == nil {
				continue
			}
			req.response <- CommonProcessResponse{
				Error: p.RefreshQuota(req),
			}
		}
	}
}

func (p *SideEffectProcess) RecordUsage(req *RecordUsageRequest) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	// 派发方没给成本时按价目表补算
	if req.record.EstimatedCost == 0 {
		req.record.EstimatedCost = ai.CostFor(req.record.Operation, req.record.Model,
			req.record.InputTokens, req.record.OutputTokens, req.record.TotalTokens)
	}

	if err := p.core.Store().UsageRecordStore().Create(ctx, req.record); err != nil {
		slog.Error("Process RecordUsage failed", slog.String("error", err.Error()),
			slog.String("user_id", req.record.UserID), slog.String("operation", req.record.Operation),
			slog.Float64("cost", req.record.EstimatedCost))
		return err
	}
	return nil
}

// StoreVector 向量化消息并写入会话向量表，同时为这次向量化记账
func (p *SideEffectProcess) StoreVector(req *StoreVectorRequest) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	embedResult, err := p.core.Srv().AI().Embed(ctx, req.content)
	if err != nil {
		slog.Error("Process StoreVector embedding failed", slog.String("error", err.Error()),
			slog.String("message_id", req.messageID))
		return err
	}

	err = p.core.Store().ConversationVectorStore().Create(ctx, types.ConversationVector{
		UserID:         req.userID,
		ConversationID: req.conversationID,
		MessageID:      req.messageID,
		Role:           req.role,
		Content:        req.content,
		Embedding:      pgvector.NewVector(embedResult.Vector),
		CreatedAt:      time.Now().Unix(),
	})
	if err != nil {
		slog.Error("Process StoreVector create failed", slog.String("error", err.Error()),
			slog.String("message_id", req.messageID))
		return err
	}

	NewRecordUsageRequest(types.UsageRecord{
		Service:        types.SERVICE_MODEL_PROVIDER,
		Operation:      types.OPERATION_EMBEDDING,
		Model:          embedResult.Model,
		UserID:         req.userID,
		ConversationID: req.conversationID,
		InputTokens:    embedResult.Tokens,
		TotalTokens:    embedResult.Tokens,
		EstimatedCost:  ai.EmbeddingCost(embedResult.Model, embedResult.Tokens),
	})
	NewRecordUsageRequest(types.UsageRecord{
		Service:        types.SERVICE_VECTOR_STORE,
		Operation:      types.OPERATION_VECTOR_UPSERT,
		UserID:         req.userID,
		ConversationID: req.conversationID,
		EstimatedCost:  ai.VectorOpCost(types.OPERATION_VECTOR_UPSERT),
	})
	return nil
}

// RefreshQuota 用账本聚合刷新用户配额快照
func (p *SideEffectProcess) RefreshQuota(req *RefreshQuotaRequest) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	now := time.Now()
	store := p.core.Store()

	daily, err := store.UsageRecordStore().SumUserCost(ctx, req.userID, utils.DayStart(now), now)
	if err != nil {
		slog.Error("Process RefreshQuota daily sum failed", slog.String("error", err.Error()),
			slog.String("user_id", req.userID))
		return err
	}
	monthly, err := store.UsageRecordStore().SumUserCost(ctx, req.userID, utils.MonthStart(now), now)
	if err != nil {
		slog.Error("Process RefreshQuota monthly sum failed", slog.String("error", err.Error()),
			slog.String("user_id", req.userID))
		return err
	}

	quota, err := store.UserQuotaStore().Get(ctx, req.userID)
	if err != nil {
		slog.Error("Process RefreshQuota load failed", slog.String("error", err.Error()),
			slog.String("user_id", req.userID))
		return err
	}

	err = store.UserQuotaStore().UpdateSnapshot(ctx, req.userID, daily, monthly,
		quota.LastResetDaily, quota.LastResetMonthly)
	if err != nil {
		slog.Error("Process RefreshQuota update failed", slog.String("error", err.Error()),
			slog.String("user_id", req.userID))
		return err
	}
	return nil
}
