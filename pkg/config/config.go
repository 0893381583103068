// Package config holds the options of a mojo run.
package config

import "strings"

const DefaultCanvasSize = 512

type Config struct {
	showQuads bool
	showDir   bool
	trace     bool
	dumpMem   bool
	png       string
	size      int
	maxSteps  int
	verbosity string
}

// ShowQuads prints the quadruple list before running.
func (c *Config) ShowQuads() bool { return c.showQuads }

func (c *Config) SetShowQuads(v bool) { c.showQuads = v }

// ShowDir prints the function directory before running.
func (c *Config) ShowDir() bool { return c.showDir }

func (c *Config) SetShowDir(v bool) { c.showDir = v }

// Trace logs every executed quadruple.
func (c *Config) Trace() bool { return c.trace }

func (c *Config) SetTrace(v bool) { c.trace = v }

// DumpMemory prints a snapshot of the machine after the run.
func (c *Config) DumpMemory() bool { return c.dumpMem }

func (c *Config) SetDumpMemory(v bool) { c.dumpMem = v }

// PNG is the file the canvas is saved to after the run, if not empty.
func (c *Config) PNG() string { return c.png }

func (c *Config) SetPNG(path string) { c.png = path }

func (c *Config) CanvasSize() int {
	if c.size <= 0 {
		return DefaultCanvasSize
	}
	return c.size
}

func (c *Config) SetCanvasSize(n int) { c.size = n }

// MaxSteps bounds execution; 0 means unbounded.
func (c *Config) MaxSteps() int { return c.maxSteps }

func (c *Config) SetMaxSteps(n int) { c.maxSteps = n }

func (c *Config) SetVerbosity(v string) { c.verbosity = v }

// Verbosity is the log topic filter. Trace adds the exec topic.
func (c *Config) Verbosity() string {
	topics := []string{}
	if c.verbosity != "" {
		topics = append(topics, c.verbosity)
	}
	if c.trace {
		topics = append(topics, "exec")
	}
	return strings.Join(topics, ",")
}
