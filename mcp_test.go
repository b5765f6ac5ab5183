package a11ywatch

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/hazyhaar/a11ywatch/internal/store"
	"github.com/hazyhaar/a11ywatch/report"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mcpSession(t *testing.T, f *fixture) *mcp.ClientSession {
	t.Helper()
	impl := &mcp.Implementation{Name: "a11ywatch-test", Version: "0.1.0"}
	srv := mcp.NewServer(impl, nil)
	f.svc.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	cs, err := mcp.NewClient(impl, nil).Connect(ctx, clientT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cs.Close() })
	return cs
}

func call(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any, out any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	if !res.IsError && out != nil {
		require.NoError(t, json.Unmarshal([]byte(res.Content[0].(*mcp.TextContent).Text), out))
	}
	return res
}

func TestMCPTools(t *testing.T) {
	f := newFixture(t, nil)
	cs := mcpSession(t, f)

	tools, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"a11y_audit", "a11y_get_audit", "a11y_list_audits",
		"a11y_list_rules", "a11y_set_rule", "a11y_rule_stats",
	}, names)

	var sum struct {
		ID         string             `json:"id"`
		Title      string             `json:"title"`
		TopRules   []report.RuleCount `json:"top_rules"`
		Violations int                `json:"violations"`
		Markdown   string             `json:"markdown"`
	}
	res := call(t, cs, "a11y_audit", map[string]any{"url": f.site.URL + "/shop"}, &sum)
	require.False(t, res.IsError)
	assert.Equal(t, "Shop", sum.Title)
	assert.Positive(t, sum.Violations)
	assert.NotEmpty(t, sum.TopRules)
	assert.Empty(t, sum.Markdown)
	first := sum.ID

	res = call(t, cs, "a11y_audit", map[string]any{"html": fixedPage, "format": "markdown"}, &sum)
	require.False(t, res.IsError)
	assert.Contains(t, sum.Markdown, "Shop")

	var rep report.Report
	res = call(t, cs, "a11y_get_audit", map[string]any{"id": first}, &rep)
	require.False(t, res.IsError)
	assert.Equal(t, first, rep.ID)
	assert.Equal(t, 1, rep.Stats.ByRule["img-name"])

	var md map[string]string
	res = call(t, cs, "a11y_get_audit", map[string]any{"id": first, "format": "markdown"}, &md)
	require.False(t, res.IsError)
	assert.Equal(t, first, md["id"])
	assert.NotEmpty(t, md["markdown"])

	res = call(t, cs, "a11y_get_audit", map[string]any{"id": "aud_missing"}, nil)
	assert.True(t, res.IsError)

	var list []store.Summary
	res = call(t, cs, "a11y_list_audits", map[string]any{"limit": 1}, &list)
	require.False(t, res.IsError)
	assert.Len(t, list, 1)

	var counts []report.RuleCount
	res = call(t, cs, "a11y_rule_stats", map[string]any{"audit_id": first}, &counts)
	require.False(t, res.IsError)
	assert.Contains(t, counts, report.RuleCount{RuleName: "img-name", Count: 1})

	res = call(t, cs, "a11y_audit", map[string]any{"url": "mailto:a@b.c"}, nil)
	assert.True(t, res.IsError)
}

func TestMCPRules(t *testing.T) {
	f := newFixture(t, nil)
	cs := mcpSession(t, f)

	var infos []RuleInfo
	res := call(t, cs, "a11y_list_rules", map[string]any{}, &infos)
	require.False(t, res.IsError)
	assert.Len(t, infos, 23)

	var info RuleInfo
	res = call(t, cs, "a11y_set_rule", map[string]any{"name": "img-name", "enabled": false}, &info)
	require.False(t, res.IsError)
	assert.False(t, info.Enabled)
	assert.True(t, info.Override)

	var sum struct {
		TopRules []report.RuleCount `json:"top_rules"`
	}
	call(t, cs, "a11y_audit", map[string]any{"html": shopPage}, &sum)
	for _, rc := range sum.TopRules {
		assert.NotEqual(t, "img-name", rc.RuleName)
	}

	res = call(t, cs, "a11y_set_rule", map[string]any{"name": "page-title", "params": map[string]any{"min_length": "3"}}, &info)
	require.False(t, res.IsError)
	assert.True(t, info.Enabled)
	assert.Equal(t, "3", info.Params["min_length"])

	res = call(t, cs, "a11y_set_rule", map[string]any{"name": "img-name", "reset": true}, &info)
	require.False(t, res.IsError)
	assert.True(t, info.Enabled)
	assert.False(t, info.Override)

	res = call(t, cs, "a11y_set_rule", map[string]any{"name": "no-such-rule", "enabled": true}, nil)
	assert.True(t, res.IsError)
}
