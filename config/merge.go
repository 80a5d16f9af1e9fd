package config

// mergeConfigs merges override configuration into base.
// A nil base yields a copy of override.
func mergeConfigs(base, override *Config) *Config {
	if base == nil {
		result := *override
		return &result
	}
	result := *base

	if override.Version != "" {
		result.Version = override.Version
	}

	result.Binding = mergeBinding(result.Binding, override.Binding)

	if override.Watch.Enabled != nil {
		result.Watch.Enabled = override.Watch.Enabled
	}
	if override.Watch.DebounceMs != 0 {
		result.Watch.DebounceMs = override.Watch.DebounceMs
	}

	if override.Refresh.TimeoutSeconds != 0 {
		result.Refresh.TimeoutSeconds = override.Refresh.TimeoutSeconds
	}
	if override.Refresh.UserAgent != "" {
		result.Refresh.UserAgent = override.Refresh.UserAgent
	}

	// Merge extensions
	if override.Extensions != nil {
		merged := make(map[string]interface{}, len(result.Extensions)+len(override.Extensions))
		for key, value := range result.Extensions {
			merged[key] = value
		}
		for key, value := range override.Extensions {
			// If both base and override have the same extension map, merge them one level deep
			if baseMap, ok := merged[key].(map[string]interface{}); ok {
				if overrideMap, ok := value.(map[string]interface{}); ok {
					mergedMap := make(map[string]interface{}, len(baseMap)+len(overrideMap))
					for k, v := range baseMap {
						mergedMap[k] = v
					}
					for k, v := range overrideMap {
						mergedMap[k] = v
					}
					merged[key] = mergedMap
					continue
				}
			}
			merged[key] = value
		}
		result.Extensions = merged
	}

	return &result
}

func mergeBinding(base, override BindingConfig) BindingConfig {
	if override.Backend != "" {
		base.Backend = override.Backend
	}
	if override.Dir != "" {
		base.Dir = override.Dir
	}
	if override.Format != "" {
		base.Format = override.Format
	}
	if override.Database != "" {
		base.Database = override.Database
	}
	return base
}
