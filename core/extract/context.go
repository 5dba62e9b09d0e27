package extract

// Context is the mutable state of one page extraction: the seen-embed set
// shared by every discovery pass and the position counter. A fresh Context
// is built for every page so nothing leaks between posts.
type Context struct {
	seen map[string]bool
	pos  int
}

// NewContext returns an empty Context.
func NewContext() *Context {
	return &Context{seen: make(map[string]bool)}
}

// next returns the next emission position, starting at 1.
func (c *Context) next() int {
	c.pos++
	return c.pos
}

// claim marks key as seen and reports whether it was new.
func (c *Context) claim(key string) bool {
	if c.seen[key] {
		return false
	}
	c.seen[key] = true
	return true
}

// Seen reports whether key has been claimed.
func (c *Context) Seen(key string) bool {
	return c.seen[key]
}
