package opengl

import "github.com/go-gl/gl/v4.1-core/gl"

// uniformCache memoizes uniform locations per program. Missing uniforms cache as -1,
// which GL ignores on upload.
type uniformCache struct {
	lookup    func(program uint32, name string) int32
	locations map[uint32]map[string]int32
}

func newUniformCache() *uniformCache {
	return &uniformCache{
		lookup: func(program uint32, name string) int32 {
			return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
		},
		locations: make(map[uint32]map[string]int32),
	}
}

func (c *uniformCache) location(program uint32, name string) int32 {
	byName, ok := c.locations[program]
	if !ok {
		byName = make(map[string]int32)
		c.locations[program] = byName
	}
	loc, ok := byName[name]
	if !ok {
		loc = c.lookup(program, name)
		byName[name] = loc
	}
	return loc
}

func (c *uniformCache) forget(program uint32) {
	delete(c.locations, program)
}
