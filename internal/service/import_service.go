package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"

	"phias/backend/config"
	"phias/backend/internal/dto"
	"phias/backend/internal/importer"
	"phias/backend/internal/store"
)

// ── 导入模块业务错误 ──

var (
	ErrImportNotFound = errors.New("导入会话不存在或已过期")
	ErrImportExpired  = errors.New("导入会话已失效，请重新开始导入")
	ErrImportBusy     = errors.New("导入会话正在处理其他请求")
)

// ImportService 批量导入业务接口
type ImportService interface {
	Template(scope string) ([]byte, string, error)
	Start(ctx context.Context, req *dto.StartImportRequest, file io.Reader) (*dto.ImportResponse, error)
	Validate(ctx context.Context, req *dto.StartImportRequest, file io.Reader) (*dto.ImportResponse, error)
	Get(ctx context.Context, id string) (*dto.ImportResponse, error)
	Resubmit(ctx context.Context, id string, file io.Reader) (*dto.ImportResponse, error)
	Retry(ctx context.Context, id string) (*dto.ImportResponse, error)
	Close(ctx context.Context, id string) error
}

// liveSession 进程内持有的会话；同一会话同一时刻只服务一个请求
type liveSession struct {
	mu      sync.Mutex
	session *importer.Session
	touched time.Time
}

type importService struct {
	st       store.Store
	sessions ImportSessionStore
	cfg      config.ImportConfig
	logger   *zap.Logger

	mu   sync.Mutex
	live map[string]*liveSession
	now  func() time.Time
}

// NewImportService 创建 ImportService 实例
func NewImportService(st store.Store, sessions ImportSessionStore, cfg *config.ImportConfig, logger *zap.Logger) ImportService {
	return &importService{
		st:       st,
		sessions: sessions,
		cfg:      *cfg,
		logger:   logger,
		live:     make(map[string]*liveSession),
		now:      time.Now,
	}
}

// ────────────────────── Template ──────────────────────

func (s *importService) Template(scope string) ([]byte, string, error) {
	sc, err := importer.ParseScope(scope)
	if err != nil {
		return nil, "", err
	}
	buf := new(bytes.Buffer)
	if err := importer.WriteTemplate(buf, sc); err != nil {
		s.logger.Error("生成导入模板失败", zap.String("scope", scope), zap.Error(err))
		return nil, "", err
	}
	return buf.Bytes(), importer.TemplateFilename(sc), nil
}

// ────────────────────── Start ──────────────────────

// Start 新建会话，校验通过后立即逐行提交。
// 校验未通过时返回会话视图与 *importer.GateError，会话停留在 Upload 等待重新上传。
func (s *importService) Start(ctx context.Context, req *dto.StartImportRequest, file io.Reader) (*dto.ImportResponse, error) {
	ls, err := s.newSession(ctx, req)
	if err != nil {
		return nil, err
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()

	// 文件结构错误时不登记会话，客户端重新发起即可
	resp, err := s.run(ctx, ls, file)
	if resp != nil {
		s.register(ls)
	}
	return resp, err
}

// ────────────────────── Validate ──────────────────────

// Validate 只做校验，不登记会话，也不发起任何创建调用
func (s *importService) Validate(ctx context.Context, req *dto.StartImportRequest, file io.Reader) (*dto.ImportResponse, error) {
	ls, err := s.newSession(ctx, req)
	if err != nil {
		return nil, err
	}

	err = ls.session.Submit(ctx, file)
	resp := s.toResponse(ls.session.Snapshot())
	resp.DryRun = true
	if err != nil && !errors.Is(err, importer.ErrValidationGate) {
		return nil, err
	}
	return resp, err
}

// ────────────────────── Get ──────────────────────

// Get 只返回调用者自己发起的会话；他人的会话按不存在处理
func (s *importService) Get(ctx context.Context, id string) (*dto.ImportResponse, error) {
	snap, err := s.sessions.Load(ctx, id)
	if err != nil {
		if errors.Is(err, errSnapshotNotFound) {
			return nil, ErrImportNotFound
		}
		s.logger.Error("读取导入会话失败", zap.String("import_id", id), zap.Error(err))
		return nil, err
	}
	if !ownedBy(ctx, snap.Owner) {
		return nil, ErrImportNotFound
	}
	return s.toResponse(snap), nil
}

// ────────────────────── Resubmit ──────────────────────

// Resubmit 向处于 Upload 状态的会话重新上传文件
func (s *importService) Resubmit(ctx context.Context, id string, file io.Reader) (*dto.ImportResponse, error) {
	ls, err := s.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer ls.mu.Unlock()
	return s.run(ctx, ls, file)
}

// ────────────────────── Retry / Close ──────────────────────

func (s *importService) Retry(ctx context.Context, id string) (*dto.ImportResponse, error) {
	ls, err := s.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer ls.mu.Unlock()

	if err := ls.session.Retry(); err != nil {
		return nil, err
	}
	snap := ls.session.Snapshot()
	s.save(ctx, snap)
	return s.toResponse(snap), nil
}

// Close 结束会话并删除快照，之后该 id 视为不存在
func (s *importService) Close(ctx context.Context, id string) error {
	ls, err := s.acquire(ctx, id)
	if err != nil {
		return err
	}
	defer ls.mu.Unlock()

	if err := ls.session.Close(); err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		s.logger.Warn("删除导入会话快照失败", zap.String("import_id", id), zap.Error(err))
	}

	s.mu.Lock()
	delete(s.live, id)
	s.mu.Unlock()
	return nil
}

// ── 内部辅助方法 ──

func (s *importService) newSession(ctx context.Context, req *dto.StartImportRequest) (*liveSession, error) {
	scope, err := importer.ParseScope(req.Scope)
	if err != nil {
		return nil, err
	}
	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("生成导入会话 ID 失败: %w", err)
	}

	ls := &liveSession{touched: s.now()}
	opts := importer.Options{
		MaxRows: s.cfg.MaxRows,
		OnProgress: func(done, total int) {
			// 每 25 行落一次快照，供轮询查看进度
			if done%25 == 0 && done < total {
				s.save(context.Background(), ls.session.Snapshot())
			}
		},
	}
	ls.session = importer.NewSession(id, scope, req.ScopeKey, s.st, s.logger, opts)
	if caller := callerFrom(ctx); caller != nil {
		ls.session.Owner = *caller
	}
	return ls, nil
}

// run 提交文件；校验通过则继续处理，最终快照落盘
func (s *importService) run(ctx context.Context, ls *liveSession, file io.Reader) (*dto.ImportResponse, error) {
	sess := ls.session
	defer func() { ls.touched = s.now() }()

	if err := sess.Submit(ctx, file); err != nil {
		if errors.Is(err, importer.ErrValidationGate) {
			snap := sess.Snapshot()
			s.save(ctx, snap)
			return s.toResponse(snap), err
		}
		return nil, err
	}

	s.save(ctx, sess.Snapshot())
	if _, err := sess.Process(ctx); err != nil {
		return nil, err
	}
	snap := sess.Snapshot()
	// 处理结果不受请求取消影响，必须落盘
	s.save(context.WithoutCancel(ctx), snap)
	return s.toResponse(snap), nil
}

func (s *importService) register(ls *liveSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpired()
	s.live[ls.session.ID] = ls
}

// acquire 取出进程内会话并加锁；调用方负责 Unlock
func (s *importService) acquire(ctx context.Context, id string) (*liveSession, error) {
	s.mu.Lock()
	s.evictExpired()
	ls, ok := s.live[id]
	s.mu.Unlock()

	if !ok {
		// 快照仍在说明会话来自已重启的进程或其他实例
		if snap, err := s.sessions.Load(ctx, id); err == nil && ownedBy(ctx, snap.Owner) {
			return nil, ErrImportExpired
		}
		return nil, ErrImportNotFound
	}
	if !ownedBy(ctx, ls.session.Owner) {
		return nil, ErrImportNotFound
	}
	if !ls.mu.TryLock() {
		return nil, ErrImportBusy
	}
	return ls, nil
}

// ownedBy 会话未记录发起人时不限制
func ownedBy(ctx context.Context, owner string) bool {
	if owner == "" {
		return true
	}
	caller := callerFrom(ctx)
	return caller != nil && *caller == owner
}

// evictExpired 清理超过 TTL 未访问的进程内会话；调用方持有 s.mu
func (s *importService) evictExpired() {
	if s.cfg.SessionTTL <= 0 {
		return
	}
	cutoff := s.now().Add(-s.cfg.SessionTTL)
	for id, ls := range s.live {
		if !ls.mu.TryLock() {
			continue
		}
		if ls.touched.Before(cutoff) {
			delete(s.live, id)
		}
		ls.mu.Unlock()
	}
}

func (s *importService) save(ctx context.Context, snap importer.Snapshot) {
	if err := s.sessions.Save(ctx, snap); err != nil {
		s.logger.Warn("保存导入会话快照失败", zap.String("import_id", snap.ID), zap.Error(err))
	}
}

func (s *importService) toResponse(snap importer.Snapshot) *dto.ImportResponse {
	shown, omitted := importer.CapDiagnostics(snap.Diagnostics, s.cfg.MaxDisplayedDiagnostics)
	resp := &dto.ImportResponse{
		ID:                 snap.ID,
		Scope:              string(snap.Scope),
		ScopeKey:           snap.ScopeKey,
		State:              string(snap.State),
		Pending:            snap.Pending,
		Processed:          snap.Processed,
		DiagnosticCount:    len(snap.Diagnostics),
		OmittedDiagnostics: omitted,
		UpdatedAt:          snap.UpdatedAt.Format(time.RFC3339),
	}
	for _, d := range shown {
		resp.Diagnostics = append(resp.Diagnostics, dto.DiagnosticResponse{Row: d.Row, Field: d.Field, Message: d.Message})
	}
	if snap.Report != nil {
		report := &dto.ImportReportResponse{
			Total:     snap.Report.Total,
			Succeeded: snap.Report.Succeeded,
			Failed:    snap.Report.Failed,
			Rows:      make([]dto.RowOutcomeResponse, 0, len(snap.Report.Rows)),
		}
		for _, r := range snap.Report.Rows {
			report.Rows = append(report.Rows, dto.RowOutcomeResponse{
				Row:     r.Row,
				Outcome: string(r.Outcome),
				Message: r.Message,
				SlotID:  r.SlotID,
			})
		}
		resp.Report = report
	}
	return resp
}
