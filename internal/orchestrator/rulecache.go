package orchestrator

import (
	"os"
	"time"

	"github.com/Iron-Ham/tabtint/internal/logging"
	"github.com/Iron-Ham/tabtint/internal/rules"
)

// ruleCache holds the rule config together with the modification time of
// the file it came from.
type ruleCache struct {
	path     string
	cfg      *rules.Config
	modTime  time.Time
	size     int64
	loaded   bool
	compiled []rules.CompiledRule
	manual   []rules.CompiledManualRule
}

// invalidate forces the next get to read the file.
func (c *ruleCache) invalidate() {
	c.loaded = false
	c.modTime = time.Time{}
	c.size = 0
}

// get returns the config, reading the file when it changed since the last
// read. A missing file yields nil. A file that fails to parse keeps the
// previous config; the failure is logged once per file version. The bool
// reports whether a new config was loaded.
func (c *ruleCache) get(logger *logging.Logger) (*rules.Config, bool) {
	info, err := os.Stat(c.path)
	if err != nil {
		if c.cfg != nil || !c.loaded {
			if !os.IsNotExist(err) {
				logger.Warn("cannot stat rule file", "path", c.path, "error", err.Error())
			}
		}
		c.set(nil, logger)
		c.invalidate()
		c.loaded = true
		return nil, false
	}

	if c.loaded && info.ModTime().Equal(c.modTime) && info.Size() == c.size {
		return c.cfg, false
	}
	c.modTime = info.ModTime()
	c.size = info.Size()
	c.loaded = true

	cfg, err := rules.Load(c.path)
	if err != nil {
		logger.Warn("cannot load rule file, keeping previous rules", "path", c.path, "error", err.Error())
		return c.cfg, false
	}
	for _, p := range cfg.Validate() {
		logger.Warn("rule file problem", "path", c.path, "error", p.Error())
	}

	c.set(cfg, logger)
	logger.Info("rules loaded", "path", c.path,
		"groups", len(c.compiled), "manual", len(c.manual))
	return cfg, true
}

func (c *ruleCache) set(cfg *rules.Config, logger *logging.Logger) {
	c.cfg = cfg
	c.compiled, c.manual = nil, nil
	if cfg == nil {
		return
	}

	var problems []error
	c.compiled, problems = rules.Compile(cfg)
	for _, p := range problems {
		logger.Debug("group rule not used for matching", "error", p.Error())
	}
	c.manual, problems = rules.CompileManual(cfg)
	for _, p := range problems {
		// Still written verbatim to the colorization file.
		logger.Debug("manual rule not used for matching", "error", p.Error())
	}
}
