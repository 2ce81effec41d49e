package tool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrUnknownTool 未注册的工具
var ErrUnknownTool = errors.New("unknown tool")

// ParamError 调用参数不合法，由调用方修正后重试
type ParamError struct {
	Param  string
	Reason string
	Err    error
}

func (e *ParamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("param %s %s: %v", e.Param, e.Reason, e.Err)
	}
	return fmt.Sprintf("param %s %s", e.Param, e.Reason)
}

func (e *ParamError) Unwrap() error { return e.Err }

// Session 已认证的调用方，由调用方显式传入
type Session struct {
	Username string    `json:"username"`
	IssuedAt time.Time `json:"issued_at"`
}

// Request 一次工具调用
type Request struct {
	Session Session
	Params  map[string]string
}

// Param 返回参数值，不存在时返回 def
func (r Request) Param(name, def string) string {
	if v, ok := r.Params[name]; ok && v != "" {
		return v
	}
	return def
}

// Artifact 工具产出的文件
type Artifact struct {
	Tool    string   `json:"tool"`
	Name    string   `json:"name"`
	Path    string   `json:"-"`
	Extra   []string `json:"extra,omitempty"`
	Summary string   `json:"summary"`
}

// Tool 可由看板调用的工具
type Tool interface {
	Name() string
	Description() string
	Run(ctx context.Context, req Request) (Artifact, error)
}

// Info 工具描述
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Registry 工具注册表，启动时注册
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry 创建注册表并注册给定工具
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register 注册工具，名称不可重复
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := t.Name()
	if name == "" {
		return errors.New("tool name is empty")
	}
	if _, ok := r.tools[name]; ok {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.tools[name] = t
	return nil
}

// Resolve 按名称查找工具
func (r *Registry) Resolve(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return t, nil
}

// List 按名称排序列出所有工具
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, Info{Name: t.Name(), Description: t.Description()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
