// Package client implements the interactive chat client: one websocket
// connection, a prompt loop, and a closed table of slash commands.
package client

import (
	"bufio"
	"chatroomd/infrastructure/wire"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const responseTimeout = 5 * time.Second

// Client owns the connection and the user's local view of the chat:
// current nickname and current room. It is driven from a single
// goroutine (the prompt loop); a background reader routes incoming
// frames to either the screen (pushes) or the pending command.
type Client struct {
	conn *websocket.Conn
	out  io.Writer

	responses chan wire.Response
	readErr   chan error

	// mu guards nickname and currentRoom: the prompt loop writes them,
	// the frame reader reads them when redrawing the prompt after a push.
	mu          sync.Mutex
	nickname    string
	currentRoom string

	commands map[string]command
}

func New(conn *websocket.Conn, out io.Writer) *Client {
	c := &Client{
		conn:      conn,
		out:       out,
		responses: make(chan wire.Response, 4),
		readErr:   make(chan error, 1),
	}
	c.commands = c.commandTable()
	return c
}

// Run reads commands from input until EOF, /quit, or a connection
// failure. The server push stream is rendered as it arrives.
func (c *Client) Run(ctx context.Context, input io.Reader) error {
	go c.readFrames()

	fmt.Fprintln(c.out, "ChatRoom client")
	fmt.Fprintf(c.out, "Commands: %s\n", strings.Join(c.commandNames(), ", "))
	for _, line := range c.helpLines() {
		fmt.Fprintln(c.out, "  "+line)
	}

	scanner := bufio.NewScanner(input)
	for {
		fmt.Fprint(c.out, c.prompt())
		if !scanner.Scan() {
			return scanner.Err()
		}
		select {
		case err := <-c.readErr:
			return fmt.Errorf("connection lost: %w", err)
		case <-ctx.Done():
			return nil
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		quit, err := c.Evaluate(ctx, line)
		if err != nil {
			printError(c.out, err)
		}
		if quit {
			return nil
		}
	}
}

// Evaluate interprets one input line: a slash command from the closed
// command table, or a bare message sent to the current room.
func (c *Client) Evaluate(ctx context.Context, line string) (quit bool, err error) {
	if !strings.HasPrefix(line, "/") {
		return false, c.sendMessage(line)
	}

	words := strings.Fields(line[1:])
	if len(words) == 0 {
		return false, nil
	}
	name, args := words[0], words[1:]

	cmd, known := c.commands[name]
	if !known {
		return false, fmt.Errorf("unknown command %q", name)
	}
	if len(args) != cmd.arity {
		return false, fmt.Errorf("command %q takes %d argument(s), got %d", name, cmd.arity, len(args))
	}
	return cmd.run(args)
}

func (c *Client) prompt() string {
	_, room := c.state()
	if room == "" {
		return "> "
	}
	return fmt.Sprintf("#%s> ", room)
}

func (c *Client) state() (nickname, room string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nickname, c.currentRoom
}

func (c *Client) setNickname(nickname string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nickname = nickname
}

func (c *Client) setCurrentRoom(room string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentRoom = room
}

// readFrames is the single reader of the connection. Pushed messages
// go straight to the screen; everything else answers a pending command.
func (c *Client) readFrames() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.readErr <- err
			close(c.responses)
			return
		}
		var resp wire.Response
		if err := json.Unmarshal(data, &resp); err != nil {
			continue
		}
		if resp.Type == wire.TypeMessage && resp.Message != nil {
			printMessage(c.out, *resp.Message)
			fmt.Fprint(c.out, c.prompt())
			continue
		}
		c.responses <- resp
	}
}

// call performs one request/response round-trip.
func (c *Client) call(req wire.Request) (wire.Response, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return wire.Response{}, err
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return wire.Response{}, err
	}

	select {
	case resp, open := <-c.responses:
		if !open {
			return wire.Response{}, fmt.Errorf("connection closed")
		}
		if resp.Type == wire.TypeError {
			return resp, fmt.Errorf("%s", resp.Error)
		}
		return resp, nil
	case <-time.After(responseTimeout):
		return wire.Response{}, fmt.Errorf("timed out waiting for %s response", req.Op)
	}
}

func (c *Client) sendMessage(content string) error {
	_, room := c.state()
	if room == "" {
		return fmt.Errorf("can't send a message without joining a room")
	}
	_, err := c.call(wire.Request{Op: wire.OpSend, Room: room, Content: content})
	return err
}
