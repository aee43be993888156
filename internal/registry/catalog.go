// Package registry 维护YAML格式的仪器目录：仪器元数据与
// 宿主进程绑定记录。驱动核心不读写该目录，只有宿主层使用。
package registry

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// InstrumentInfo 一台仪器的注册元数据
type InstrumentInfo struct {
	Name     string            `yaml:"name"`     // 全局唯一标识，如 lab.ppcl550
	Driver   string            `yaml:"driver"`   // 驱动标识，如 itla/ppcl55x
	Params   map[string]string `yaml:"params"`   // 连接参数（设备路径、波特率等）
	Lockable bool              `yaml:"lockable"` // 是否支持独占锁定
}

// ResourceBinding 仪器与宿主守护进程的绑定记录
type ResourceBinding struct {
	ID         string    `yaml:"id"` // uuid
	Instrument string    `yaml:"instrument"`
	Host       string    `yaml:"host"`
	Port       int       `yaml:"port"`
	BoundAt    time.Time `yaml:"boundAt"`
}

// catalogFile 目录文件的磁盘结构
type catalogFile struct {
	Instruments []InstrumentInfo  `yaml:"instruments"`
	Bindings    []ResourceBinding `yaml:"bindings"`
}

// Registry 目录文件的内存视图，读写加锁
type Registry struct {
	path string

	mu          sync.Mutex
	instruments []InstrumentInfo
	bindings    []ResourceBinding
}

// New 创建空目录视图
func New(path string) *Registry {
	return &Registry{path: path}
}

// Load 从目录文件加载。文件不存在视为空目录（首次运行）。
func Load(path string) (*Registry, error) {
	r := New(path)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("registry: read %s: %w", path, err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("registry: parse %s: %w", path, err)
	}
	r.instruments = f.Instruments
	r.bindings = f.Bindings
	return r, nil
}

// Save 写回目录文件
func (r *Registry) Save() error {
	r.mu.Lock()
	f := catalogFile{Instruments: r.instruments, Bindings: r.bindings}
	r.mu.Unlock()

	data, err := yaml.Marshal(&f)
	if err != nil {
		return fmt.Errorf("registry: marshal: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("registry: write %s: %w", r.path, err)
	}
	return nil
}

// Register 登记一台仪器，同名记录被覆盖
func (r *Registry) Register(info InstrumentInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, in := range r.instruments {
		if in.Name == info.Name {
			r.instruments[i] = info
			return
		}
	}
	r.instruments = append(r.instruments, info)
}

// Lookup 按名称查找仪器
func (r *Registry) Lookup(name string) (InstrumentInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, in := range r.instruments {
		if in.Name == name {
			return in, true
		}
	}
	return InstrumentInfo{}, false
}

// Instruments 返回已登记仪器的副本
func (r *Registry) Instruments() []InstrumentInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]InstrumentInfo, len(r.instruments))
	copy(out, r.instruments)
	return out
}

// Bind 登记仪器与宿主的绑定，返回绑定ID。
// 同一仪器重复绑定时旧记录被替换（宿主重启场景）。
func (r *Registry) Bind(instrument, host string, port int) ResourceBinding {
	b := ResourceBinding{
		ID:         uuid.NewString(),
		Instrument: instrument,
		Host:       host,
		Port:       port,
		BoundAt:    time.Now().UTC(),
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, old := range r.bindings {
		if old.Instrument == instrument {
			r.bindings[i] = b
			return b
		}
	}
	r.bindings = append(r.bindings, b)
	return b
}

// Bindings 返回绑定记录的副本
func (r *Registry) Bindings() []ResourceBinding {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ResourceBinding, len(r.bindings))
	copy(out, r.bindings)
	return out
}
