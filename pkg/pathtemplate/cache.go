package pathtemplate

import (
	"regexp"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of compiled templates kept in memory
const DefaultCacheSize = 2048

// Cache memoizes compiled templates. Local calls, cross-repo calls and
// e2e mocks all match through the same cache.
type Cache struct {
	compiled *lru.Cache[string, *regexp.Regexp]
}

// NewCache creates a cache holding up to size compiled templates
func NewCache(size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, *regexp.Regexp](size)
	if err != nil {
		// lru.New only fails for non-positive sizes
		panic(err)
	}
	return &Cache{compiled: c}
}

// Get returns the compiled matcher for template
func (c *Cache) Get(template string) (*regexp.Regexp, error) {
	if re, ok := c.compiled.Get(template); ok {
		return re, nil
	}
	re, err := Compile(template)
	if err != nil {
		return nil, err
	}
	c.compiled.Add(template, re)
	return re, nil
}

// Match reports whether path satisfies template. Exact equality short
// circuits; a template that fails to compile matches nothing.
func (c *Cache) Match(template, path string) bool {
	if template == path {
		return true
	}
	re, err := c.Get(template)
	if err != nil {
		return false
	}
	return re.MatchString(path)
}

// Len reports the number of cached templates
func (c *Cache) Len() int {
	return c.compiled.Len()
}
