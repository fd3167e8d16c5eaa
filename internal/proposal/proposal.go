// Package proposal turns connections no rule matches into new group rules
// persisted to the rule file.
package proposal

import (
	"context"
	"strings"
	"sync"

	"github.com/Iron-Ham/tabtint/internal/colorsolver"
	"github.com/Iron-Ham/tabtint/internal/errors"
	"github.com/Iron-Ham/tabtint/internal/host"
	"github.com/Iron-Ham/tabtint/internal/logging"
	"github.com/Iron-Ham/tabtint/internal/rules"
	"github.com/Iron-Ham/tabtint/internal/util"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Option configures a Proposer.
type Option func(*Proposer)

// WithPrompter lets the user confirm or rename each proposal.
func WithPrompter(p host.Prompter) Option {
	return func(pr *Proposer) { pr.prompter = p }
}

// WithGroupName names the group of every proposal instead of deriving it
// from the connection. The prompter is not consulted.
func WithGroupName(name string) Option {
	return func(pr *Proposer) { pr.group = strings.TrimSpace(name) }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(pr *Proposer) { pr.logger = l }
}

// Proposer is the default host.Proposer. It reads the rule file, inserts
// the proposed rule at the front and writes the file back. Calls are
// serialized so concurrent proposals do not lose each other's writes.
type Proposer struct {
	path     string
	step     int
	prompter host.Prompter
	group    string
	logger   *logging.Logger
	mu       sync.Mutex
}

// New creates a Proposer writing to the rule file at path. step is how far
// existing rules are shifted down.
func New(path string, step int, opts ...Option) *Proposer {
	p := &Proposer{path: path, step: step}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logging.NopLogger()
	}
	p.logger = p.logger.WithComponent("proposal")
	return p
}

// Propose implements host.Proposer. A missing rule file is created. A
// connection some existing rule already names exactly is left alone, as is
// a proposal the user declines.
func (p *Proposer) Propose(ctx context.Context, prop host.Proposal) error {
	if strings.TrimSpace(prop.Server) == "" {
		return errors.NewValidationError("proposal has no server").WithField("server")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	cfg, err := rules.Load(p.path)
	switch {
	case errors.Is(err, errors.ErrNoConfig):
		cfg = &rules.Config{Settings: rules.DefaultSettings()}
	case err != nil:
		return errors.Wrapf(err, "load rules for proposal")
	}

	if Covered(cfg, prop) {
		p.logger.Debug("connection already has a rule", "server", prop.Server, "database", prop.Database)
		return nil
	}

	rule := BuildRule(prop, cfg.UsedColors())

	if p.group != "" {
		rule.GroupName = p.group
	} else if cfg.Settings.EnableConfigurePrompt && p.prompter != nil {
		group, ok, err := p.prompter.Confirm(ctx, prop, rule.GroupName)
		if err != nil {
			return errors.Wrapf(err, "confirm proposal")
		}
		if !ok {
			p.logger.Info("proposal declined", "server", prop.Server, "database", prop.Database)
			return nil
		}
		if g := strings.TrimSpace(group); g != "" {
			rule.GroupName = g
		}
	}

	cfg.Propose(rule, p.step)
	if err := rules.Save(p.path, cfg); err != nil {
		return errors.Wrapf(err, "save proposed rule")
	}

	p.logger.WithGroup(rule.GroupName).Info("rule proposed",
		"server", rule.Server, "database", rule.Database, "priority", rule.Priority)
	return nil
}

// BuildRule makes the rule for a proposal: an exact server pattern, plus an
// exact database pattern when the proposal carries one, and the lowest
// color index not in used. When all colors are taken the rule gets none.
func BuildRule(prop host.Proposal, used map[int]bool) rules.Rule {
	rule := rules.Rule{
		GroupName: SuggestGroup(prop.Server, prop.Database),
		Server:    strings.TrimSpace(prop.Server),
		Database:  strings.TrimSpace(prop.Database),
	}
	for i := range colorsolver.Buckets {
		if !used[i] {
			rule.ColorIndex = rules.IntPtr(i)
			break
		}
	}
	return rule
}

// SuggestGroup derives a readable group name from the server's first
// host label and, when given, the database.
func SuggestGroup(server, database string) string {
	label := strings.TrimSpace(server)
	if i := strings.IndexAny(label, `.\,:`); i > 0 {
		label = label[:i]
	}
	title := cases.Title(language.Und)
	name := title.String(strings.ToLower(label))
	if database = strings.TrimSpace(database); database != "" {
		name += " " + title.String(strings.ToLower(database))
	}
	return name
}

// Covered reports whether some group rule already names exactly this
// connection, ignoring case.
func Covered(cfg *rules.Config, prop host.Proposal) bool {
	for _, r := range cfg.Groups {
		if util.EqualFold(strings.TrimSpace(r.Server), strings.TrimSpace(prop.Server)) &&
			util.EqualFold(strings.TrimSpace(r.Database), strings.TrimSpace(prop.Database)) {
			return true
		}
	}
	return false
}
