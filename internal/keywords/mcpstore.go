package keywords

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"ffnexus/internal/logger"
)

var mcpImpl = &mcp.Implementation{Name: "ffnexus", Version: "1.0.0"}

// Tool names exposed by the MCP filesystem server.
const (
	ReadFileTool  = "read_text_file"
	WriteFileTool = "write_file"
)

// MCPStore keeps the keyword list as a JSON file served by an MCP
// filesystem server. The session is opened on first use and reopened after
// a transport failure.
type MCPStore struct {
	newTransport func() mcp.Transport
	path         string
	client       *mcp.Client

	mu      sync.Mutex
	session *mcp.ClientSession
}

// NewMCPStore returns a store that reaches the server through transports
// produced by newTransport.
func NewMCPStore(newTransport func() mcp.Transport, path string) *MCPStore {
	return &MCPStore{
		newTransport: newTransport,
		path:         path,
		client:       mcp.NewClient(mcpImpl, nil),
	}
}

// NewCommandMCPStore launches the filesystem server as a subprocess
// speaking MCP over stdio.
func NewCommandMCPStore(command string, args []string, path string) *MCPStore {
	return NewMCPStore(func() mcp.Transport {
		return &mcp.CommandTransport{Command: exec.Command(command, args...)}
	}, path)
}

func (s *MCPStore) connect(ctx context.Context) (*mcp.ClientSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil {
		return s.session, nil
	}
	session, err := s.client.Connect(ctx, s.newTransport(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MCP server: %w", err)
	}
	logger.Debug("Connected to MCP keyword store", "path", s.path)
	s.session = session
	return session, nil
}

// reset drops a session after a transport error so the next call reconnects.
func (s *MCPStore) reset(session *mcp.ClientSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == session {
		_ = s.session.Close()
		s.session = nil
	}
}

// call invokes a tool and returns its text output. A tool-level failure is
// reported with toolErr set.
func (s *MCPStore) call(ctx context.Context, name string, args map[string]any) (text string, toolErr bool, err error) {
	session, err := s.connect(ctx)
	if err != nil {
		return "", false, err
	}

	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		s.reset(session)
		return "", false, fmt.Errorf("MCP %s failed: %w", name, err)
	}

	var b strings.Builder
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String(), res.IsError, nil
}

func (s *MCPStore) Load(ctx context.Context) ([]string, error) {
	text, toolErr, err := s.call(ctx, ReadFileTool, map[string]any{"path": s.path})
	if err != nil {
		return nil, err
	}
	if toolErr {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, text)
	}
	return decodeList(text)
}

func (s *MCPStore) Save(ctx context.Context, keywords []string) error {
	data, err := json.MarshalIndent(keywords, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode keywords: %w", err)
	}
	text, toolErr, err := s.call(ctx, WriteFileTool, map[string]any{
		"path":    s.path,
		"content": string(data),
	})
	if err != nil {
		return err
	}
	if toolErr {
		return fmt.Errorf("MCP %s rejected: %s", WriteFileTool, text)
	}
	return nil
}

// Close ends the MCP session, if any.
func (s *MCPStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	err := s.session.Close()
	s.session = nil
	return err
}
