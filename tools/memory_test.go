package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProfileStore keeps profiles in a map, matching the first-occurrence
// replace semantics of the real store.
type fakeProfileStore struct {
	profiles map[string]string
	failWith error
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{profiles: make(map[string]string)}
}

func (f *fakeProfileStore) View(_ context.Context, userID string) (string, bool, error) {
	if f.failWith != nil {
		return "", false, f.failWith
	}
	content, found := f.profiles[userID]
	return content, found, nil
}

func (f *fakeProfileStore) Create(_ context.Context, userID, content string) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.profiles[userID] = content
	return nil
}

func (f *fakeProfileStore) Replace(_ context.Context, userID, oldStr, newStr string) (ReplaceOutcome, error) {
	if f.failWith != nil {
		return ReplaceProfileMissing, f.failWith
	}
	content, found := f.profiles[userID]
	if !found {
		return ReplaceProfileMissing, nil
	}
	if !strings.Contains(content, oldStr) {
		return ReplaceNoMatch, nil
	}
	f.profiles[userID] = strings.Replace(content, oldStr, newStr, 1)
	return ReplaceApplied, nil
}

func (f *fakeProfileStore) Delete(_ context.Context, userID string) error {
	if f.failWith != nil {
		return f.failWith
	}
	delete(f.profiles, userID)
	return nil
}

func (f *fakeProfileStore) Exists(_ context.Context, userID string) (bool, error) {
	if f.failWith != nil {
		return false, f.failWith
	}
	_, found := f.profiles[userID]
	return found, nil
}

func memoryCall(t *testing.T, tool *MemoryTool, input map[string]any) string {
	t.Helper()
	result, err := tool.Call(context.Background(), Request{UserID: "u1", SessionID: "s1", Input: input})
	require.NoError(t, err)
	return result
}

func TestMemoryViewMissingProfile(t *testing.T) {
	tool := NewMemoryTool(newFakeProfileStore())

	result := memoryCall(t, tool, map[string]any{
		"command": "view",
		"path":    "/memories/user-u1",
	})

	assert.Contains(t, result, "does not exist")
	assert.Contains(t, result, "create")
}

func TestMemoryCreateThenView(t *testing.T) {
	store := newFakeProfileStore()
	tool := NewMemoryTool(store)

	created := memoryCall(t, tool, map[string]any{
		"command":   "create",
		"path":      "/memories/user-u1",
		"file_text": "# Profile\nName: Juan",
	})
	assert.Contains(t, created, "File created successfully")
	assert.Equal(t, "# Profile\nName: Juan", store.profiles["u1"])

	viewed := memoryCall(t, tool, map[string]any{
		"command": "view",
		"path":    "/memories/user-u1",
	})
	assert.Contains(t, viewed, "     1    # Profile")
	assert.Contains(t, viewed, "     2    Name: Juan")
}

func TestMemoryStrReplaceNoMatchLeavesContentUnchanged(t *testing.T) {
	store := newFakeProfileStore()
	store.profiles["u1"] = "Teams: Millonarios"
	tool := NewMemoryTool(store)

	result := memoryCall(t, tool, map[string]any{
		"command": "str_replace",
		"path":    "/memories/user-u1",
		"old_str": "Teams: Nacional",
		"new_str": "Teams: Junior",
	})

	assert.Contains(t, result, "No replacement was performed")
	assert.Contains(t, result, "old_str did not appear verbatim")
	assert.Equal(t, "Teams: Millonarios", store.profiles["u1"])
}

func TestMemoryStrReplaceOutcomes(t *testing.T) {
	store := newFakeProfileStore()
	tool := NewMemoryTool(store)

	missing := memoryCall(t, tool, map[string]any{
		"command": "str_replace",
		"path":    "/memories/user-u1",
		"old_str": "a",
		"new_str": "b",
	})
	assert.Contains(t, missing, "does not exist")
	assert.Contains(t, missing, "create")

	store.profiles["u1"] = "Name: Juan"
	applied := memoryCall(t, tool, map[string]any{
		"command": "str_replace",
		"path":    "/memories/user-u1",
		"old_str": "Name: Juan",
		"new_str": "Name: Juan Pablo",
	})
	assert.Contains(t, applied, "edited successfully")
	assert.Equal(t, "Name: Juan Pablo", store.profiles["u1"])
}

func TestMemoryFind(t *testing.T) {
	store := newFakeProfileStore()
	store.profiles["u1"] = "Name: Juan\nTeams: Millonarios\nLeagues: Liga BetPlay"
	tool := NewMemoryTool(store)

	found := memoryCall(t, tool, map[string]any{
		"command": "find",
		"path":    "/memories/user-u1",
		"pattern": "millonarios",
	})
	assert.Contains(t, found, "   2: Teams: Millonarios")

	none := memoryCall(t, tool, map[string]any{
		"command": "find",
		"path":    "/memories/user-u1",
		"pattern": "tennis",
	})
	assert.Contains(t, none, "No matches found")
}

func TestMemoryDelete(t *testing.T) {
	store := newFakeProfileStore()
	store.profiles["u1"] = "anything"
	tool := NewMemoryTool(store)

	result := memoryCall(t, tool, map[string]any{
		"command": "delete",
		"path":    "/memories/user-u1",
	})

	assert.Contains(t, result, "File deleted successfully")
	assert.NotContains(t, store.profiles, "u1")
}

func TestMemoryPathVariants(t *testing.T) {
	store := newFakeProfileStore()
	store.profiles["u1"] = "x"
	tool := NewMemoryTool(store)

	// Both the prefixed and bare forms address the same profile.
	withPrefix := memoryCall(t, tool, map[string]any{"command": "view", "path": "/memories/user-u1"})
	bare := memoryCall(t, tool, map[string]any{"command": "view", "path": "/memories/u1"})
	assert.Contains(t, withPrefix, "     1    x")
	assert.Contains(t, bare, "     1    x")

	invalid := memoryCall(t, tool, map[string]any{"command": "view", "path": "/etc/passwd"})
	assert.Contains(t, invalid, "invalid memory path")
}

func TestMemoryUnknownCommand(t *testing.T) {
	tool := NewMemoryTool(newFakeProfileStore())

	result := memoryCall(t, tool, map[string]any{
		"command": "append",
		"path":    "/memories/user-u1",
	})

	assert.Contains(t, result, "Unknown memory command")
}

func TestMemoryStoreFailureIsAdvisoryText(t *testing.T) {
	store := newFakeProfileStore()
	store.failWith = errors.New("database locked")
	tool := NewMemoryTool(store)

	result := memoryCall(t, tool, map[string]any{
		"command": "view",
		"path":    "/memories/user-u1",
	})

	assert.Contains(t, result, "Memory operation failed")
	assert.Contains(t, result, "database locked")
}
