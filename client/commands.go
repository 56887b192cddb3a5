package client

import (
	"chatroomd/infrastructure/wire"
	"fmt"
	"sort"
)

// command is one entry of the closed command table. Arity is declared
// at registration and checked before the handler runs; there is no
// dynamic dispatch by method name.
type command struct {
	arity int
	help  string
	run   func(args []string) (quit bool, err error)
}

func (c *Client) commandTable() map[string]command {
	return map[string]command{
		"nick": {
			arity: 1,
			help:  "/nick <name>  log in or change nickname",
			run:   c.onNick,
		},
		"join": {
			arity: 1,
			help:  "/join <room>  join a room and print its backlog",
			run:   c.onJoin,
		},
		"list": {
			arity: 0,
			help:  "/list         list all rooms",
			run:   c.onList,
		},
		"names": {
			arity: 0,
			help:  "/names        list who is in the current room",
			run:   c.onNames,
		},
		"quit": {
			arity: 0,
			help:  "/quit         disconnect and exit",
			run:   func([]string) (bool, error) { return true, nil },
		},
	}
}

func (c *Client) commandNames() []string {
	names := make([]string, 0, len(c.commands))
	for name := range c.commands {
		names = append(names, `"`+name+`"`)
	}
	sort.Strings(names)
	return names
}

func (c *Client) helpLines() []string {
	lines := make([]string, 0, len(c.commands))
	for _, cmd := range c.commands {
		lines = append(lines, cmd.help)
	}
	sort.Strings(lines)
	return lines
}

// onNick logs in on first use and renames afterwards, mirroring how a
// session only exists once a nickname is taken.
func (c *Client) onNick(args []string) (bool, error) {
	name := args[0]
	nickname, _ := c.state()
	op := wire.OpNick
	if nickname == "" {
		op = wire.OpLogin
	}
	if _, err := c.call(wire.Request{Op: op, Nickname: name}); err != nil {
		return false, err
	}
	c.setNickname(name)
	return false, nil
}

func (c *Client) onJoin(args []string) (bool, error) {
	if nickname, _ := c.state(); nickname == "" {
		return false, fmt.Errorf("can't join a room without a nickname")
	}
	room := args[0]
	fmt.Fprintf(c.out, "Joining room %q\n", room)

	resp, err := c.call(wire.Request{Op: wire.OpJoin, Room: room})
	if err != nil {
		return false, err
	}
	for _, m := range resp.Messages {
		printMessage(c.out, m)
	}
	if len(resp.Messages) == 0 {
		fmt.Fprintln(c.out, "Empty channel!")
	}
	c.setCurrentRoom(resp.Room)
	return false, nil
}

func (c *Client) onList(_ []string) (bool, error) {
	if nickname, _ := c.state(); nickname == "" {
		return false, fmt.Errorf("can't list rooms without a nickname")
	}
	resp, err := c.call(wire.Request{Op: wire.OpList})
	if err != nil {
		return false, err
	}
	printRooms(c.out, resp.Rooms)
	return false, nil
}

func (c *Client) onNames(_ []string) (bool, error) {
	_, room := c.state()
	if room == "" {
		return false, fmt.Errorf("can't list members without joining a room")
	}
	resp, err := c.call(wire.Request{Op: wire.OpNames, Room: room})
	if err != nil {
		return false, err
	}
	printMembers(c.out, resp.Members)
	return false, nil
}
