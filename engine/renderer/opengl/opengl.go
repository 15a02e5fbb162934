// Package opengl submits culled multi-draw batches through OpenGL 4.1 core.
//
// GL 4.1 has no base-instance draw calls, so every batch entry sets the uBaseInstance uniform
// and shaders fetch per-instance data with gl_InstanceID + uBaseInstance, typically from an
// InstanceBuffer bound as a samplerBuffer.
//
// Every function in this package must run on the thread owning the current GL context.
package opengl

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-cull/common"
	"github.com/go-gl/gl/v4.1-core/gl"
)

// BaseInstanceUniform is the int uniform carrying the first instance of the current draw.
const BaseInstanceUniform = "uBaseInstance"

// Init loads the GL function pointers. Must be called after the context is made current.
//
// Returns:
//   - error: an error if the GL functions could not be loaded
func Init() error {
	if err := gl.Init(); err != nil {
		return fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	common.Logger().Info("[OpenGL] initialized", "version", gl.GoStr(gl.GetString(gl.VERSION)))
	return nil
}

// NewProgram compiles and links a vertex and fragment shader pair.
//
// Parameters:
//   - vertSrc: GLSL vertex source
//   - fragSrc: GLSL fragment source
//
// Returns:
//   - uint32: the program name
//   - error: an error carrying the compile or link log
func NewProgram(vertSrc, fragSrc string) (uint32, error) {
	vert, err := compileShader(vertSrc, gl.VERTEX_SHADER)
	if err != nil {
		return 0, fmt.Errorf("failed to compile vertex shader: %w", err)
	}
	defer gl.DeleteShader(vert)
	frag, err := compileShader(fragSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		return 0, fmt.Errorf("failed to compile fragment shader: %w", err)
	}
	defer gl.DeleteShader(frag)

	prog := gl.CreateProgram()
	gl.AttachShader(prog, vert)
	gl.AttachShader(prog, frag)
	gl.LinkProgram(prog)

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetProgramInfoLog(prog, logLen, nil, gl.Str(log))
		gl.DeleteProgram(prog)
		return 0, fmt.Errorf("failed to link program: %v", strings.TrimRight(log, "\x00"))
	}
	return prog, nil
}

func compileShader(src string, shaderType uint32) (uint32, error) {
	if !strings.HasSuffix(src, "\x00") {
		src += "\x00"
	}
	shader := gl.CreateShader(shaderType)
	csrc, free := gl.Strs(src)
	gl.ShaderSource(shader, 1, csrc, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetShaderInfoLog(shader, logLen, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("%v", strings.TrimRight(log, "\x00"))
	}
	return shader, nil
}
