// Package factory provides a small generic registry used to instantiate
// pluggable modules (metrics sinks, dispatch log stores) from configuration.
// A module is described by a type string and a map of raw settings; the
// registered factory decodes the settings into a typed struct.
//
//	reg := factory.NewRegistry[logging.LogStore]()
//	_ = reg.Register("jsonl", func(conf map[string]any) (logging.LogStore, error) {
//	    var c struct{ Path string `json:"path"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return logging.NewJSONLStore(c.Path)
//	})
//	store, err := reg.Create(factory.ModuleConfig{Type: "jsonl", Conf: map[string]any{"path": "dispatch.jsonl"}})
package factory
