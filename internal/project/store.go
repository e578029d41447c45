// internal/project/store.go
package project

import (
	"errors"
	"sync"
	"time"

	"github.com/Corphon/AnimStudio/internal/models"
	"github.com/Corphon/AnimStudio/internal/utils"
)

// ErrStaleEpoch 结果到达时用户已离开发起请求的模块，写入被丢弃
var ErrStaleEpoch = errors.New("stale navigation epoch")

// Change 已提交的一次变更
type Change struct {
	Revision uint64      `json:"revision"`
	Epoch    uint64      `json:"epoch"`
	Op       string      `json:"op"`
	View     models.View `json:"view"`
	At       time.Time   `json:"at"`
}

// ThemeApplier 主题切换时的外部副作用
type ThemeApplier interface {
	ApplyTheme(theme models.Theme)
}

// MainActionResolver 返回模块挂载时注册的主操作
type MainActionResolver func(view models.View) (MainAction, bool)

// Store 进程内唯一的项目状态持有者；读者不会看到部分更新
type Store struct {
	mu         sync.RWMutex
	state      State
	drafts     map[models.View]models.Draft
	mainAction *MainAction
	resolver   MainActionResolver
	theme      ThemeApplier

	revision uint64
	epoch    uint64

	subMu       sync.Mutex
	subscribers map[chan Change]struct{}

	logger *utils.Logger
}

// Option 配置 Store
type Option func(*Store)

// WithThemeApplier 设置主题副作用
func WithThemeApplier(t ThemeApplier) Option {
	return func(s *Store) { s.theme = t }
}

// NewStore 创建状态存储
func NewStore(opts ...Option) *Store {
	s := &Store{
		state:       InitialState(),
		drafts:      make(map[models.View]models.Draft),
		subscribers: make(map[chan Change]struct{}),
		logger:      utils.GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetMainActionResolver 设置模块到主操作的映射，并为当前模块注册
func (s *Store) SetMainActionResolver(r MainActionResolver) {
	s.mu.Lock()
	s.resolver = r
	s.mainAction = nil
	if r != nil {
		if action, ok := r(s.state.ActiveView); ok {
			s.mainAction = &action
		}
	}
	s.mu.Unlock()
}

func (s *Store) commitLocked(op string) Change {
	s.revision++
	return Change{
		Revision: s.revision,
		Epoch:    s.epoch,
		Op:       op,
		View:     s.state.ActiveView,
		At:       time.Now(),
	}
}

// apply 在写锁内应用 reducer 并通知订阅者
func (s *Store) apply(op string, reducer func(State) State) Change {
	s.mu.Lock()
	s.state = reducer(s.state)
	change := s.commitLocked(op)
	s.mu.Unlock()

	s.publish(change)
	return change
}

// CommitAt 仅当 epoch 未变化时应用 reducer，否则丢弃并返回 ErrStaleEpoch
func (s *Store) CommitAt(epoch uint64, op string, reducer func(State) State) error {
	return s.CommitModuleAt(epoch, op, "", reducer, nil, nil)
}

// CommitModuleAt 与 CommitAt 相同，并在同一次提交中修改 view 的草稿、重新计算未保存标记
func (s *Store) CommitModuleAt(epoch uint64, op string, view models.View, reducer func(State) State, editDraft func(*models.Draft), rule DirtyRule) error {
	s.mu.Lock()
	if s.epoch != epoch {
		current := s.epoch
		s.mu.Unlock()
		s.logger.Warn("Discarded stale write", map[string]interface{}{
			"op":            op,
			"request_epoch": epoch,
			"current_epoch": current,
		})
		return ErrStaleEpoch
	}

	if reducer != nil {
		s.state = reducer(s.state)
	}
	if view != "" && editDraft != nil {
		d := s.drafts[view].Clone()
		editDraft(&d)
		s.drafts[view] = d
	}
	if view != "" && view == s.state.ActiveView && rule != nil {
		s.state = SetIsDirty(s.state, rule(s.drafts[view], s.state))
	}
	change := s.commitLocked(op)
	s.mu.Unlock()

	s.publish(change)
	return nil
}

// Snapshot 返回状态的深拷贝，不包含主操作
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Epoch 当前导航 epoch
func (s *Store) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// Revision 已提交的变更数
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// ActiveView 当前模块
func (s *Store) ActiveView() models.View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ActiveView
}

// Character 按ID读取角色
func (s *Store) Character(id string) (models.Character, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.FindCharacter(id)
}

func (s *Store) SetOutline(o *models.Outline) {
	s.apply("setOutline", func(st State) State { return SetOutline(st, o) })
}

func (s *Store) SetPlot(p *models.Plot) {
	s.apply("setPlot", func(st State) State { return SetPlot(st, p) })
}

func (s *Store) AddCharacter(c models.Character) {
	s.apply("addCharacter", func(st State) State { return AddCharacter(st, c) })
}

func (s *Store) UpdateCharacter(c models.Character) {
	s.apply("updateCharacter", func(st State) State { return UpdateCharacter(st, c) })
}

func (s *Store) DeleteCharacter(id string) {
	s.apply("deleteCharacter", func(st State) State { return DeleteCharacter(st, id) })
}

func (s *Store) AddRiggedCharacter(r models.RiggedCharacter) {
	s.apply("addRiggedCharacter", func(st State) State { return AddRiggedCharacter(st, r) })
}

func (s *Store) AddLocation(l models.Location) {
	s.apply("addLocation", func(st State) State { return AddLocation(st, l) })
}

func (s *Store) AddStoryboardPanel(p models.StoryboardPanel) {
	s.apply("addStoryboardPanel", func(st State) State { return AddStoryboardPanel(st, p) })
}

func (s *Store) SetMarketingKit(kit *models.MarketingResult) {
	s.apply("setMarketingKit", func(st State) State { return SetMarketingKit(st, kit) })
}

func (s *Store) UpdateVoiceScript(vs models.VoiceScript) {
	s.apply("updateVoiceScript", func(st State) State { return UpdateVoiceScript(st, vs) })
}

func (s *Store) SetIsDirty(dirty bool) {
	s.apply("setIsDirty", func(st State) State { return SetIsDirty(st, dirty) })
}

// ToggleTheme 切换主题并通知外部
func (s *Store) ToggleTheme() models.Theme {
	var theme models.Theme
	s.apply("toggleTheme", func(st State) State {
		st = ToggleTheme(st)
		theme = st.Theme
		return st
	})
	if s.theme != nil {
		s.theme.ApplyTheme(theme)
	}
	return theme
}

// ResetProject 确认后除主题外重置全部状态并回到仪表盘
func (s *Store) ResetProject(confirm Confirmer) bool {
	if confirm == nil || !confirm.Confirm(ResetPrompt) {
		return false
	}

	s.mu.Lock()
	s.state = ResetProject(s.state)
	s.epoch++
	s.drafts = make(map[models.View]models.Draft)
	s.mainAction = nil
	if s.resolver != nil {
		if action, ok := s.resolver(s.state.ActiveView); ok {
			s.mainAction = &action
		}
	}
	change := s.commitLocked("resetProject")
	s.mu.Unlock()

	s.publish(change)
	s.logger.Info("Project reset", map[string]interface{}{"epoch": change.Epoch})
	return true
}

// Draft 读取模块草稿
func (s *Store) Draft(view models.View) (models.Draft, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drafts[view]
	return d.Clone(), ok
}

// Drafts 所有草稿的副本
func (s *Store) Drafts() map[models.View]models.Draft {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[models.View]models.Draft, len(s.drafts))
	for v, d := range s.drafts {
		out[v] = d.Clone()
	}
	return out
}

// DirtyRule 根据草稿和状态计算是否有未保存内容
type DirtyRule func(draft models.Draft, st State) bool

// UpdateDraft 保存草稿；草稿属于当前模块时同时更新未保存标记
func (s *Store) UpdateDraft(view models.View, draft models.Draft, rule DirtyRule) bool {
	s.mu.Lock()
	s.drafts[view] = draft.Clone()
	active := view == s.state.ActiveView
	if active && rule != nil {
		s.state = SetIsDirty(s.state, rule(draft, s.state))
	}
	dirty := s.state.IsDirty
	change := s.commitLocked("updateDraft")
	s.mu.Unlock()

	s.publish(change)
	return active && dirty
}

// ClearDraft 丢弃模块草稿；view 为当前模块时清除未保存标记
func (s *Store) ClearDraft(view models.View) bool {
	s.mu.Lock()
	delete(s.drafts, view)
	if view == s.state.ActiveView {
		s.state = SetIsDirty(s.state, false)
	}
	dirty := s.state.IsDirty
	change := s.commitLocked("clearDraft")
	s.mu.Unlock()

	s.publish(change)
	return dirty
}

// Subscribe 订阅变更；返回的函数取消订阅
func (s *Store) Subscribe(buffer int) (<-chan Change, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Change, buffer)

	s.subMu.Lock()
	s.subscribers[ch] = struct{}{}
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subscribers, ch)
			s.subMu.Unlock()
			close(ch)
		})
	}
}

// publish 非阻塞发送，订阅者缓冲区满时丢弃
func (s *Store) publish(change Change) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- change:
		default:
		}
	}
}
