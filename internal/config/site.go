package config

// SiteConfig holds the request identity sent to a catalog source.
// It may be set in the defaults section and overridden per catalog.
type SiteConfig struct {
	// UserAgent is the User-Agent header. Empty keeps the built-in value.
	UserAgent string `yaml:"userAgent,omitempty"`

	// Cookie is an HTTP cookie sent with every request.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers included in every request.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// merge returns base overridden by the non-empty fields of override.
func (base SiteConfig) merge(override SiteConfig) SiteConfig {
	result := SiteConfig{
		UserAgent: base.UserAgent,
		Cookie:    base.Cookie,
	}
	if len(base.Headers) > 0 || len(override.Headers) > 0 {
		result.Headers = make(map[string]string, len(base.Headers)+len(override.Headers))
		for k, v := range base.Headers {
			result.Headers[k] = v
		}
		for k, v := range override.Headers {
			result.Headers[k] = v
		}
	}
	if override.UserAgent != "" {
		result.UserAgent = override.UserAgent
	}
	if override.Cookie != "" {
		result.Cookie = override.Cookie
	}
	return result
}

// GetSiteConfig returns the request identity of a catalog: the defaults
// merged with the catalog's own site section.
func (cf *File) GetSiteConfig(catalog string) SiteConfig {
	result := cf.Defaults.merge(SiteConfig{})
	if c, ok := cf.Catalogs[catalog]; ok {
		result = result.merge(c.Site)
	}
	return result
}
