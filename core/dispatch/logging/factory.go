package logging

import "github.com/kilianp07/eld/core/factory"

var storeRegistry = factory.NewRegistry[LogStore]()

type storeConf struct {
	Path string `json:"path"`
}

func init() {
	_ = RegisterLogStore("jsonl", func(conf map[string]any) (LogStore, error) {
		var c storeConf
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewJSONLStore(c.Path)
	})
	_ = RegisterLogStore("sqlite", func(conf map[string]any) (LogStore, error) {
		var c storeConf
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewSQLiteStore(c.Path)
	})
}

// RegisterLogStore adds a log store factory identified by name.
func RegisterLogStore(name string, f factory.Factory[LogStore]) error {
	return storeRegistry.Register(name, f)
}

// NewLogStore creates the LogStore described by cfg.
func NewLogStore(cfg factory.ModuleConfig) (LogStore, error) {
	return storeRegistry.Create(cfg)
}
