package config

// SiteConfig holds per-site configuration for a single project host.
// This allows customizing crawl behavior per site without touching the
// stored project definition.
type SiteConfig struct {
	// Headers are custom HTTP headers to include in requests to this
	// site, for example an auth cookie to audit a staging environment.
	Headers map[string]string `yaml:"headers,omitempty"`

	// ExcludePatterns are URL patterns to skip during crawling. Exact
	// matches, substrings, and '*' globs are supported; matching is
	// case-insensitive.
	ExcludePatterns []string `yaml:"excludePatterns,omitempty"`

	// MaxRetries overrides how many times a previously failed URL may
	// be retried by a later enqueue. Zero keeps failed URLs skipped
	// permanently.
	MaxRetries int `yaml:"maxRetries,omitempty"`

	// UserAgent overrides the global User-Agent for this site.
	UserAgent string `yaml:"userAgent,omitempty"`
}

// File represents the structure of the .seoscan configuration file.
type File struct {
	// Sites maps host names (without protocol, e.g. "example.com") to
	// their site-specific configurations.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains default site configuration applied to all sites
	// unless overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a host, merging the
// site-specific configuration over the defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults

	if siteConfig, ok := cf.Sites[host]; ok {
		if len(siteConfig.Headers) > 0 {
			if result.Headers == nil {
				result.Headers = make(map[string]string)
			}
			for k, v := range siteConfig.Headers {
				result.Headers[k] = v
			}
		}
		if len(siteConfig.ExcludePatterns) > 0 {
			result.ExcludePatterns = siteConfig.ExcludePatterns
		}
		if siteConfig.MaxRetries != 0 {
			result.MaxRetries = siteConfig.MaxRetries
		}
		if siteConfig.UserAgent != "" {
			result.UserAgent = siteConfig.UserAgent
		}
	}

	return result
}
