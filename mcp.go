package a11ywatch

import (
	"context"

	"github.com/hazyhaar/a11ywatch/internal/store"
	"github.com/hazyhaar/a11ywatch/kit"
	"github.com/hazyhaar/a11ywatch/report"
	"github.com/hazyhaar/a11ywatch/rule"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterMCP registers the audit tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerAudit(srv)
	s.registerGetAudit(srv)
	s.registerListAudits(srv)
	s.registerListRules(srv)
	s.registerSetRule(srv)
	s.registerRuleStats(srv)
}

func (s *Service) tool(srv *mcp.Server, tool *mcp.Tool, ep kit.Endpoint, decode func(*mcp.CallToolRequest) (*kit.MCPDecodeResult, error)) {
	kit.RegisterMCPTool(srv, tool, kit.Logging(s.logger, tool.Name)(ep), decode)
}

func (s *Service) registerAudit(srv *mcp.Server) {
	type req struct {
		URL    string `json:"url"`
		HTML   string `json:"html"`
		Mode   string `json:"mode"`
		Format string `json:"format"`
	}
	type summary struct {
		ID         string             `json:"id"`
		URL        string             `json:"url,omitempty"`
		Title      string             `json:"title,omitempty"`
		Stats      report.Stats       `json:"stats"`
		TopRules   []report.RuleCount `json:"top_rules"`
		Violations int                `json:"violations"`
		Markdown   string             `json:"markdown,omitempty"`
	}

	tool := &mcp.Tool{
		Name:        "a11y_audit",
		Description: "Audit a web page (by URL or inline HTML) for accessibility violations and store the report",
		InputSchema: kit.InputSchema(map[string]any{
			"url":    map[string]any{"type": "string", "description": "http(s) URL to audit"},
			"html":   map[string]any{"type": "string", "description": "Inline HTML to audit instead of fetching url"},
			"mode":   map[string]any{"type": "string", "enum": []string{"auto", "http", "browser"}, "description": "Acquisition mode for url"},
			"format": map[string]any{"type": "string", "enum": []string{"summary", "full", "markdown"}, "description": "Response shape (default summary)"},
		}),
	}

	ep := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		rep, err := s.Audit(ctx, AuditRequest{URL: p.URL, HTML: p.HTML, Mode: p.Mode})
		if err != nil {
			return nil, err
		}
		if p.Format == "full" {
			return rep, nil
		}
		out := summary{
			ID:         rep.ID,
			URL:        rep.URL,
			Title:      rep.Title,
			Stats:      rep.Stats,
			TopRules:   rep.Stats.TopRules(),
			Violations: len(rep.Violations()),
		}
		if p.Format == "markdown" {
			if out.Markdown, err = report.Markdown(rep); err != nil {
				return nil, err
			}
		}
		return out, nil
	}
	s.tool(srv, tool, ep, kit.DecodeJSON[req]())
}

func (s *Service) registerGetAudit(srv *mcp.Server) {
	type req struct {
		ID     string `json:"id"`
		Format string `json:"format"`
	}
	tool := &mcp.Tool{
		Name:        "a11y_get_audit",
		Description: "Fetch a stored audit report by id, as JSON or Markdown",
		InputSchema: kit.InputSchema(map[string]any{
			"id":     map[string]any{"type": "string", "description": "Audit id (aud_...)"},
			"format": map[string]any{"type": "string", "enum": []string{"json", "markdown"}, "description": "Default json"},
		}, "id"),
	}
	ep := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		rep, err := s.GetAudit(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if p.Format == "markdown" {
			md, err := report.Markdown(rep)
			if err != nil {
				return nil, err
			}
			return map[string]string{"id": rep.ID, "markdown": md}, nil
		}
		return rep, nil
	}
	s.tool(srv, tool, ep, kit.DecodeJSON[req]())
}

func (s *Service) registerListAudits(srv *mcp.Server) {
	type req struct {
		URL    string `json:"url"`
		Limit  int    `json:"limit"`
		Offset int    `json:"offset"`
	}
	tool := &mcp.Tool{
		Name:        "a11y_list_audits",
		Description: "List stored audits, newest first",
		InputSchema: kit.InputSchema(map[string]any{
			"url":    map[string]any{"type": "string", "description": "Only audits of this exact URL"},
			"limit":  map[string]any{"type": "integer", "description": "Default 50"},
			"offset": map[string]any{"type": "integer"},
		}),
	}
	ep := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return s.ListAudits(ctx, store.ListFilter{URL: p.URL, Limit: p.Limit, Offset: p.Offset})
	}
	s.tool(srv, tool, ep, kit.DecodeJSON[req]())
}

func (s *Service) registerListRules(srv *mcp.Server) {
	type req struct{}
	tool := &mcp.Tool{
		Name:        "a11y_list_rules",
		Description: "List the accessibility rules with their current options",
		InputSchema: kit.InputSchema(map[string]any{}),
	}
	ep := func(context.Context, any) (any, error) {
		return s.Rules(), nil
	}
	s.tool(srv, tool, ep, kit.DecodeJSON[req]())
}

func (s *Service) registerSetRule(srv *mcp.Server) {
	type req struct {
		Name    string            `json:"name"`
		Enabled *bool             `json:"enabled"`
		Params  map[string]string `json:"params"`
		Reset   bool              `json:"reset"`
	}
	tool := &mcp.Tool{
		Name:        "a11y_set_rule",
		Description: "Enable, disable or parameterise a rule for later audits; reset restores its defaults",
		InputSchema: kit.InputSchema(map[string]any{
			"name":    map[string]any{"type": "string", "description": "Rule name, see a11y_list_rules"},
			"enabled": map[string]any{"type": "boolean"},
			"params":  map[string]any{"type": "object", "additionalProperties": map[string]any{"type": "string"}},
			"reset":   map[string]any{"type": "boolean", "description": "Drop stored options instead of setting them"},
		}, "name"),
	}
	ep := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		if p.Reset {
			return s.ResetRule(ctx, p.Name)
		}
		o := rule.Options{Params: p.Params}
		if p.Enabled != nil {
			o.Enabled = *p.Enabled
		} else {
			// Keep the current state when only params change.
			for _, info := range s.Rules() {
				if info.Name == p.Name {
					o.Enabled = info.Enabled
				}
			}
		}
		return s.SetRule(ctx, p.Name, o)
	}
	s.tool(srv, tool, ep, kit.DecodeJSON[req]())
}

func (s *Service) registerRuleStats(srv *mcp.Server) {
	type req struct {
		AuditID string `json:"audit_id"`
	}
	tool := &mcp.Tool{
		Name:        "a11y_rule_stats",
		Description: "Count stored violations per rule over the audit history or one audit",
		InputSchema: kit.InputSchema(map[string]any{
			"audit_id": map[string]any{"type": "string", "description": "Restrict to one audit"},
		}),
	}
	ep := func(ctx context.Context, r any) (any, error) {
		return s.RuleStats(ctx, r.(*req).AuditID)
	}
	s.tool(srv, tool, ep, kit.DecodeJSON[req]())
}
