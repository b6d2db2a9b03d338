/*
This file assembles the system prompt by stacking instruction layers in a
fixed order:

 1. persona.md                 - agent identity and personality
 2. ways/way_output_format.md  - the response format contract (mandatory)
 3. ways/way_memory.md         - when and how to use the memory tool
 4. ways/way_tools.md          - when to use sports data vs web search
 5. skills/skill_<mode>.md     - the single active mode's instructions
 6. Runtime context            - date, identities, profile flags
 7. Conversation history       - last 10 turns rendered as dialogue

Layer files are cached in memory for the process lifetime after the first
successful load. ClearCache forces a reload, which is only useful for
hot-editing prompt files during development.
*/
package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// historyWindow caps how many prior turns are rendered into the prompt.
const historyWindow = 10

// layerSeparator joins instruction layers in the assembled prompt.
const layerSeparator = "\n\n---\n\n"

// PromptComposer loads instruction layer files and assembles them with the
// runtime context into one system prompt per request.
type PromptComposer struct {
	dir    string
	cache  map[string]string
	mutex  sync.RWMutex
	logger *logrus.Logger
}

// NewPromptComposer creates a composer reading layer files from dir.
func NewPromptComposer(dir string, logger *logrus.Logger) *PromptComposer {
	return &PromptComposer{
		dir:    dir,
		cache:  make(map[string]string),
		logger: logger,
	}
}

// loadLayer returns the content of a layer file, caching it after the first
// read. Missing or unreadable files are cached as empty so the filesystem is
// not hit again on every request.
func (p *PromptComposer) loadLayer(relativePath string) string {
	p.mutex.RLock()
	content, cached := p.cache[relativePath]
	p.mutex.RUnlock()
	if cached {
		return content
	}

	data, err := os.ReadFile(filepath.Join(p.dir, relativePath))
	if err != nil {
		p.logger.WithError(err).WithField("layer", relativePath).Warn("Missing prompt layer file")
		data = nil
	}

	p.mutex.Lock()
	p.cache[relativePath] = string(data)
	p.mutex.Unlock()

	return string(data)
}

// ClearCache drops all cached layer contents, forcing a reload from disk on
// the next assembly. It has no effect on correctness guarantees.
func (p *PromptComposer) ClearCache() {
	p.mutex.Lock()
	p.cache = make(map[string]string)
	p.mutex.Unlock()
	p.logger.Info("Prompt layer cache cleared")
}

// Assemble builds the full system prompt for one request. Missing layers
// degrade to empty segments, except the output format contract: the
// normalizer depends on the model having been told that contract, so its
// absence is reported as a configuration error.
func (p *PromptComposer) Assemble(sctx SessionContext, decision ModeDecision) string {
	var parts []string

	if identity := p.loadLayer("persona.md"); identity != "" {
		parts = append(parts, identity)
	}

	outputFormat := p.loadLayer("ways/way_output_format.md")
	if outputFormat == "" {
		p.logger.Error("Output format contract layer is missing; responses may not follow the wire format")
	} else {
		parts = append(parts, outputFormat)
	}

	if memoryWay := p.loadLayer("ways/way_memory.md"); memoryWay != "" {
		parts = append(parts, memoryWay)
	}

	if toolsWay := p.loadLayer("ways/way_tools.md"); toolsWay != "" {
		parts = append(parts, toolsWay)
	}

	if skill := p.loadLayer(fmt.Sprintf("skills/skill_%s.md", decision.Mode)); skill != "" {
		parts = append(parts, fmt.Sprintf("## ACTIVE SKILL: %s\n\n%s", strings.ToUpper(string(decision.Mode)), skill))
	}

	parts = append(parts, p.renderRuntimeContext(sctx))

	if history := p.renderHistory(sctx); history != "" {
		parts = append(parts, history)
	}

	return strings.Join(parts, layerSeparator)
}

func (p *PromptComposer) renderRuntimeContext(sctx SessionContext) string {
	hasProfile := "No - use the onboarding skill"
	if sctx.HasProfile {
		hasProfile = "Yes"
	}
	firstOfDay := "No"
	if sctx.FirstMessageOfDay {
		firstOfDay = "Yes"
	}

	return fmt.Sprintf(`## SESSION CONTEXT

- **Local date and time**: %s, %s
- **userId**: `+"`%s`"+`
- **sessionId**: `+"`%s`"+`
- **User memory path**: `+"`/memories/user-%s`"+`
- **Has stored profile**: %s
- **First message of the day**: %s`,
		sctx.LocalDate, sctx.LocalTime,
		sctx.UserID, sctx.SessionID, sctx.UserID,
		hasProfile, firstOfDay)
}

func (p *PromptComposer) renderHistory(sctx SessionContext) string {
	if len(sctx.History) == 0 {
		return ""
	}

	turns := sctx.History
	if len(turns) > historyWindow {
		turns = turns[len(turns)-historyWindow:]
	}

	lines := make([]string, 0, len(turns))
	for _, turn := range turns {
		speaker := "User"
		if turn.Role == "assistant" {
			speaker = sctx.AgentName
		}
		lines = append(lines, fmt.Sprintf("**%s**: %s", speaker, turn.Content))
	}

	return "## CONVERSATION HISTORY\n\n" + strings.Join(lines, "\n\n")
}
