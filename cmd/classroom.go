/*
Copyright © 2026 Anton Brekhov <anton@abrekhov.ru>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/abrekhov/edunet/pkg/config"
	"github.com/abrekhov/edunet/pkg/hashutils"
	"github.com/abrekhov/edunet/pkg/media"
	"github.com/abrekhov/edunet/pkg/negotiation"
	"github.com/abrekhov/edunet/pkg/signal"
	"github.com/abrekhov/edunet/pkg/transfer"
	"github.com/abrekhov/edunet/pkg/transport"
	"github.com/chzyer/readline"
	"github.com/pterm/pterm"
	log "github.com/sirupsen/logrus"
)

const streamID = "edunet"

const helpText = `/file <path>   share a file
/files         list received files
/save <n>      save received file n to the download directory
/renegotiate   renegotiate the session
/video         start sending a camera track
/share         replace the video track with a screen track
/status        show session details
/hangup        end the session
anything else is sent as chat`

// classroom is one interactive session: a transport, the engine driving it
// and the terminal around them.
type classroom struct {
	cfg    *config.Config
	peer   *transport.Peer
	engine *negotiation.Engine
	inbox  *transfer.Inbox
	rl     *readline.Instance
	log    *log.Entry

	closeOnce sync.Once
}

func newClassroom(cfg *config.Config, side string) (*classroom, error) {
	entry := log.WithField("prefix", side)

	// Pasted tickets are longer than the 1024 bytes a canonical-mode
	// terminal accepts on macOS; readline reads them raw.
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "/hangup",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open terminal: %w", err)
	}
	// Notifications redraw the prompt instead of breaking it.
	pterm.SetDefaultOutput(rl.Stdout())

	peer, err := transport.NewPeer(transport.PeerConfig{
		ICEServers: cfg.ICEServers,
		Logger:     entry,
	})
	if err != nil {
		_ = rl.Close()
		return nil, err
	}

	c := &classroom{
		cfg:   cfg,
		peer:  peer,
		inbox: transfer.NewInbox(),
		rl:    rl,
		log:   entry,
	}
	opts := append(cfg.EngineOptions(),
		negotiation.WithLogger(entry),
		negotiation.WithCallbacks(c.callbacks()),
	)
	c.engine = negotiation.New(peer, nil, opts...)
	c.log = entry.WithField("session", c.engine.SessionID())
	return c, nil
}

func (c *classroom) callbacks() negotiation.Callbacks {
	return negotiation.Callbacks{
		OnStateChange: func(s negotiation.State) {
			switch s {
			case negotiation.StateConnected:
				pterm.Success.Println("Connected. Type /help for commands.")
			case negotiation.StateFailed:
				pterm.Error.Println("Session failed")
			default:
				c.log.Debugf("state: %s", s)
			}
		},
		OnGatheringStateChange: func(s transport.GatheringState) {
			c.log.Debugf("gathering: %s", s)
		},
		OnConnectionStateChange: func(s transport.ConnectionState) {
			if s == transport.ConnectionDisconnected {
				pterm.Warning.Println("Connection lost, waiting for it to recover")
			}
		},
		OnError: func(err error) {
			pterm.Error.Println(err)
		},
		OnTimeoutWarning: func(w negotiation.TimeoutWarning) {
			pterm.Warning.Printfln("Connection is taking longer than expected: %s", w)
		},
		OnMessage:     c.onMessage,
		OnRemoteTrack: func(kind, id string) { pterm.Info.Printfln("Peer is sending %s (%s)", kind, id) },
		OnClosed: func(remote bool) {
			if remote {
				pterm.Info.Println("Peer hung up")
			}
			c.closeTerminal()
		},
	}
}

func (c *classroom) onMessage(m signal.ControlMessage) {
	switch m.Type {
	case signal.TypeFile:
		f, err := transfer.FromMessage(m, c.cfg.MaxFileSize)
		if err != nil {
			pterm.Error.Printfln("Rejected file %q: %v", m.Name, err)
			return
		}
		n := c.inbox.Add(f)
		pterm.Success.Printfln("Received #%d %s (%s). /save %d to keep it.", n, f.Filename, transfer.FormatSize(f.Size), n)
	default:
		pterm.Println(pterm.Cyan("peer: ") + m.Message)
	}
}

// showTicket prints the ticket in the configured format with its code.
func (c *classroom) showTicket(title string, t signal.Ticket) error {
	text, err := encodeTicket(t, c.cfg.TicketFormat)
	if err != nil {
		return err
	}
	pterm.DefaultSection.Println(title)
	// Plain output keeps the ticket copyable.
	fmt.Println(text)
	pterm.Println()
	pterm.Info.Printfln("Verification code: %s", pterm.Bold.Sprint(hashutils.TicketCode(t)))
	return nil
}

// verifyCode prints the code of a pasted ticket and compares it with the
// one the peer reads out. An empty reply skips the check.
func (c *classroom) verifyCode(t signal.Ticket) bool {
	code := hashutils.TicketCode(t)
	pterm.Info.Printfln("Pasted ticket code: %s", pterm.Bold.Sprint(code))
	c.rl.SetPrompt("Code read out by your peer (Enter to skip): ")
	line, err := c.rl.Readline()
	if err != nil {
		return true
	}
	ok, checked := codeMatches(code, line)
	switch {
	case !checked:
	case ok:
		pterm.Success.Println("Codes match")
	default:
		pterm.Warning.Printfln("Codes differ, this ticket is %s. Paste it again.", code)
	}
	return ok || !checked
}

// codeMatches compares the local code with what the user typed. checked is
// false when nothing was typed.
func codeMatches(code, typed string) (ok, checked bool) {
	if strings.TrimSpace(typed) == "" {
		return false, false
	}
	return hashutils.SameCode(code, typed), true
}

func encodeTicket(t signal.Ticket, format string) (string, error) {
	if format == config.FormatJSON {
		return signal.EncodeTicket(t)
	}
	return signal.EncodeTicketCompact(t)
}

// readTicket reads one pasted ticket; an interrupt aborts.
func (c *classroom) readTicket(prompt string) (string, error) {
	for {
		c.rl.SetPrompt(prompt)
		line, err := c.rl.Readline()
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(line) != "" {
			return line, nil
		}
	}
}

// run is the interactive loop. It returns once the session closed or the
// user hung up.
func (c *classroom) run(ctx context.Context) {
	go func() {
		select {
		case <-ctx.Done():
			_ = c.engine.Close(true)
		case <-c.engine.Done():
		}
		c.closeTerminal()
	}()

	c.rl.SetPrompt("> ")
	for {
		line, err := c.rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if c.confirm("Hang up? [y/N] ") {
				break
			}
			c.rl.SetPrompt("> ")
			continue
		}
		if err != nil {
			break
		}
		if quit := c.handleLine(ctx, line); quit {
			break
		}
	}
	c.hangUp()
}

func (c *classroom) confirm(prompt string) bool {
	c.rl.SetPrompt(prompt)
	line, err := c.rl.Readline()
	if err != nil {
		return true
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func (c *classroom) hangUp() {
	if err := c.engine.Close(true); err != nil {
		c.log.Warnf("close: %v", err)
	}
	c.closeTerminal()
}

func (c *classroom) closeTerminal() {
	c.closeOnce.Do(func() {
		_ = c.rl.Close()
	})
}

type command struct {
	name string
	arg  string
}

// parseCommand splits "/name arg". Lines without a leading slash are chat
// and return an empty name.
func parseCommand(line string) command {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return command{arg: line}
	}
	name, arg, _ := strings.Cut(line[1:], " ")
	return command{name: strings.ToLower(name), arg: strings.TrimSpace(arg)}
}

func (c *classroom) handleLine(ctx context.Context, line string) (quit bool) {
	cmd := parseCommand(line)
	var err error
	switch cmd.name {
	case "":
		if cmd.arg == "" {
			return false
		}
		err = c.engine.Send(signal.ChatMessage(cmd.arg))
	case "file":
		err = c.sendFile(cmd.arg)
	case "files":
		c.listFiles()
	case "save":
		err = c.saveFile(cmd.arg)
	case "renegotiate":
		err = c.engine.RequestRenegotiation(ctx)
	case "video":
		err = c.startVideo()
	case "share":
		err = c.shareScreen()
	case "status":
		err = c.status()
	case "hangup", "quit":
		return true
	case "help":
		pterm.Println(helpText)
	default:
		pterm.Warning.Printfln("Unknown command /%s, try /help", cmd.name)
	}
	if err != nil {
		pterm.Error.Println(err)
	}
	return false
}

func (c *classroom) sendFile(path string) error {
	if path == "" {
		return errors.New("usage: /file <path>")
	}
	f, err := transfer.ReadFile(path, c.cfg.MaxFileSize)
	if err != nil {
		return err
	}
	if err := c.engine.Send(f.Message()); err != nil {
		return err
	}
	pterm.Success.Printfln("Sent %s (%s)", f.Filename, transfer.FormatSize(f.Size))
	return nil
}

func (c *classroom) listFiles() {
	entries := c.inbox.List()
	if len(entries) == 0 {
		pterm.Info.Println("No files received yet")
		return
	}
	data := pterm.TableData{{"#", "Name", "Size", "Type", "State", "Path"}}
	for i, e := range entries {
		data = append(data, []string{
			strconv.Itoa(i + 1), e.File.Filename, transfer.FormatSize(e.File.Size),
			e.File.MimeType, e.State.String(), e.Path,
		})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func (c *classroom) saveFile(arg string) error {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return errors.New("usage: /save <n>")
	}
	path, err := c.inbox.Save(n, c.cfg.DownloadDir)
	if err != nil {
		return err
	}
	pterm.Success.Printfln("Saved to %s", path)
	return nil
}

// startVideo adds a camera track. The transport raises negotiation-needed
// and the engine renegotiates on its own.
func (c *classroom) startVideo() error {
	cam, err := media.NewVideoTrack("camera", streamID)
	if err != nil {
		return err
	}
	if err := c.engine.ReferenceTrack(cam); err != nil {
		return err
	}
	if _, err := c.peer.AddTrack(cam); err != nil {
		return err
	}
	if c.engine.Role().Polite() && !c.cfg.PoliteOffers {
		pterm.Info.Println("Video is sent once the host renegotiates (/renegotiate on their side)")
	}
	return nil
}

func (c *classroom) shareScreen() error {
	screen, err := media.NewVideoTrack("screen", streamID)
	if err != nil {
		return err
	}
	var senders []media.Replacer
	for _, s := range c.peer.VideoSenders() {
		senders = append(senders, s)
	}
	if err := media.ReplaceVideoTrack(senders, screen); err != nil {
		_ = screen.Stop()
		return fmt.Errorf("screen share: %w", err)
	}
	if err := c.engine.ReferenceTrack(screen); err != nil {
		return err
	}
	pterm.Success.Println("Sharing screen")
	return nil
}

func (c *classroom) status() error {
	data := pterm.TableData{
		{"Session", c.engine.SessionID()},
		{"Role", c.engine.Role().String()},
		{"State", c.engine.State().String()},
		{"Phase", c.engine.Phase().String()},
		{"Pending offer", strconv.FormatBool(c.engine.PendingLocalOffer())},
		{"Channel open", strconv.FormatBool(c.peer.ChannelOpen())},
		{"Gathering", c.peer.GatheringState().String()},
		{"Files received", strconv.Itoa(len(c.inbox.List()))},
	}
	return pterm.DefaultTable.WithData(data).Render()
}

// abortable reports whether err came from the user leaving a prompt.
func abortable(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt)
}
