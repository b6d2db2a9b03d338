package tools

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
)

var memoryLogger = logrus.WithField("tool", "memory")

// memoryPathRe accepts /memories/user-{userId} or /memories/{userId}.
var memoryPathRe = regexp.MustCompile(`^/memories/(?:user-)?(.+)$`)

// ReplaceOutcome reports what a profile Replace operation did.
type ReplaceOutcome int

const (
	// ReplaceApplied means the substring was found and replaced.
	ReplaceApplied ReplaceOutcome = iota
	// ReplaceProfileMissing means no profile exists for the user.
	ReplaceProfileMissing
	// ReplaceNoMatch means the profile exists but the target substring did
	// not appear verbatim; the stored content is unchanged.
	ReplaceNoMatch
)

// ProfileStore is the persistence collaborator behind the memory tool.
type ProfileStore interface {
	View(ctx context.Context, userID string) (content string, found bool, err error)
	Create(ctx context.Context, userID, content string) error
	Replace(ctx context.Context, userID, oldStr, newStr string) (ReplaceOutcome, error)
	Delete(ctx context.Context, userID string) error
	Exists(ctx context.Context, userID string) (bool, error)
}

// MemoryTool lets the agent view and edit the user's persistent profile.
// The agent addresses profiles as files under /memories/, mirroring the
// interface of the provider's native memory tool so the instructions carry
// over unchanged.
type MemoryTool struct {
	store ProfileStore
}

// NewMemoryTool creates the memory command handler.
func NewMemoryTool(store ProfileStore) *MemoryTool {
	memoryLogger.Debug("Initializing memory tool")
	return &MemoryTool{store: store}
}

func (m *MemoryTool) Name() string {
	return "memory"
}

func (m *MemoryTool) Description() string {
	return "Access and modify the user's memory file. Stores and retrieves sports preferences, " +
		"name, favorite teams and other persistent user data across sessions."
}

func (m *MemoryTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{
				"type":        "string",
				"enum":        []string{"view", "create", "str_replace", "find", "delete"},
				"description": "view=read, create=create/overwrite, str_replace=edit a specific field, find=search text, delete=remove",
			},
			"path": map[string]any{
				"type":        "string",
				"description": "File path. ALWAYS use /memories/user-{userId} with the userId from the SESSION CONTEXT.",
			},
			"file_text": map[string]any{
				"type":        "string",
				"description": "Full file content. Required only for: create",
			},
			"old_str": map[string]any{
				"type":        "string",
				"description": "Exact text to replace. Required only for: str_replace",
			},
			"new_str": map[string]any{
				"type":        "string",
				"description": "Replacement text. Required only for: str_replace",
			},
			"pattern": map[string]any{
				"type":        "string",
				"description": "Text to search for. Required only for: find",
			},
		},
		"required": []string{"command", "path"},
	}
}

// Call sub-dispatches on the command field. Store failures are reported as
// advisory text; they never surface as errors to the loop.
func (m *MemoryTool) Call(ctx context.Context, req Request) (string, error) {
	command := stringField(req.Input, "command")
	path := stringField(req.Input, "path")
	toolLogger := memoryLogger.WithFields(logrus.Fields{"command": command, "path": path})
	toolLogger.Info("Memory tool called")

	userID, err := userIDFromPath(path)
	if err != nil {
		return err.Error(), nil
	}

	var result string
	switch command {
	case "view":
		result, err = m.view(ctx, userID, path)
	case "create":
		result, err = m.create(ctx, userID, path, stringField(req.Input, "file_text"))
	case "str_replace":
		result, err = m.strReplace(ctx, userID, path, stringField(req.Input, "old_str"), stringField(req.Input, "new_str"))
	case "find":
		result, err = m.find(ctx, userID, path, stringField(req.Input, "pattern"))
	case "delete":
		result, err = m.delete(ctx, userID, path)
	default:
		return fmt.Sprintf("Unknown memory command: %q. Valid commands: view, create, str_replace, find, delete", command), nil
	}

	if err != nil {
		toolLogger.WithError(err).Error("Memory operation failed")
		return fmt.Sprintf("Memory operation failed: %v", err), nil
	}
	return result, nil
}

func (m *MemoryTool) view(ctx context.Context, userID, path string) (string, error) {
	content, found, err := m.store.View(ctx, userID)
	if err != nil {
		return "", err
	}
	if !found {
		return fmt.Sprintf("The path %s does not exist. To store information about this user, use the create command.", path), nil
	}
	return formatWithLineNumbers(path, content), nil
}

func (m *MemoryTool) create(ctx context.Context, userID, path, fileText string) (string, error) {
	if err := m.store.Create(ctx, userID, fileText); err != nil {
		return "", err
	}
	return fmt.Sprintf("File created successfully at: %s", path), nil
}

func (m *MemoryTool) strReplace(ctx context.Context, userID, path, oldStr, newStr string) (string, error) {
	outcome, err := m.store.Replace(ctx, userID, oldStr, newStr)
	if err != nil {
		return "", err
	}
	switch outcome {
	case ReplaceProfileMissing:
		return fmt.Sprintf("The path %s does not exist. Use create to initialize it first.", path), nil
	case ReplaceNoMatch:
		return fmt.Sprintf("No replacement was performed - old_str did not appear verbatim in %s.\n"+
			"Make sure the string matches exactly (including whitespace and line breaks).", path), nil
	default:
		return "The memory file has been edited successfully.", nil
	}
}

func (m *MemoryTool) find(ctx context.Context, userID, path, pattern string) (string, error) {
	content, found, err := m.store.View(ctx, userID)
	if err != nil {
		return "", err
	}
	if !found {
		return fmt.Sprintf("The path %s does not exist.", path), nil
	}

	var matches []string
	for i, line := range strings.Split(content, "\n") {
		if strings.Contains(strings.ToLower(line), strings.ToLower(pattern)) {
			matches = append(matches, fmt.Sprintf("%4d: %s", i+1, line))
		}
	}
	if len(matches) == 0 {
		return fmt.Sprintf("No matches found for %q in %s", pattern, path), nil
	}
	return fmt.Sprintf("Matches for %q in %s:\n%s", pattern, path, strings.Join(matches, "\n")), nil
}

func (m *MemoryTool) delete(ctx context.Context, userID, path string) (string, error) {
	if err := m.store.Delete(ctx, userID); err != nil {
		return "", err
	}
	return fmt.Sprintf("File deleted successfully: %s", path), nil
}

func userIDFromPath(path string) (string, error) {
	match := memoryPathRe.FindStringSubmatch(path)
	if match == nil {
		return "", fmt.Errorf("invalid memory path: %q. Expected: /memories/user-{userId}", path)
	}
	return match[1], nil
}

func formatWithLineNumbers(path, content string) string {
	lines := strings.Split(content, "\n")
	numbered := make([]string, len(lines))
	for i, line := range lines {
		numbered[i] = fmt.Sprintf("%6d    %s", i+1, line)
	}
	return fmt.Sprintf("Here's the content of %s with line numbers:\n%s", path, strings.Join(numbered, "\n"))
}

var _ Handler = (*MemoryTool)(nil)
