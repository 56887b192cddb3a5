package client

import (
	"chatroomd/infrastructure/wire"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

func printMessage(out io.Writer, m wire.Message) {
	fmt.Fprintf(out, "\r%s: %s\n", color.Cyan.Sprint(m.Author), m.Content)
}

func printError(out io.Writer, err error) {
	fmt.Fprintf(out, "%s %v\n", color.Red.Sprint("ERROR:"), err)
}

func printMembers(out io.Writer, members []string) {
	if len(members) == 0 {
		fmt.Fprintln(out, "Nobody here.")
		return
	}
	fmt.Fprintln(out, strings.Join(members, ", "))
}

func printRooms(out io.Writer, rooms []wire.RoomSummary) {
	if len(rooms) == 0 {
		fmt.Fprintln(out, "No rooms yet.")
		return
	}
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"ID", "Room"})
	for _, room := range rooms {
		table.Append([]string{strconv.FormatUint(uint64(room.ID), 10), room.Name})
	}
	table.Render()
}
