// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/peterh/liner"

	"github.com/jeranaias/docchat-tui/internal/actions"
	"github.com/jeranaias/docchat-tui/internal/config"
	"github.com/jeranaias/docchat-tui/internal/export"
	"github.com/jeranaias/docchat-tui/internal/model"
	"github.com/jeranaias/docchat-tui/internal/notify"
	"github.com/jeranaias/docchat-tui/internal/store"
	"github.com/jeranaias/docchat-tui/internal/stream"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineReader wraps liner with persistent history in the config directory.
type lineReader struct {
	line        *liner.State
	historyFile string
}

func newLineReader() *lineReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	r := &lineReader{
		line:        line,
		historyFile: filepath.Join(configDir, "history"),
	}
	if f, err := os.Open(r.historyFile); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}
	return r
}

func (r *lineReader) read(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

func (r *lineReader) close() {
	if err := config.EnsureConfigDir(); err == nil {
		if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			r.line.WriteHistory(f)
			f.Close()
		}
	}
	r.line.Close()
}

// =============================================================================
// REPL
// =============================================================================

// Repl is the plain-terminal chat loop.
type Repl struct {
	cfg         *config.Config
	store       *store.Store
	coordinator *actions.Coordinator
	manager     *stream.Manager
	previewer   *actions.Previewer

	mu sync.Mutex
	// printed tracks how much of the in-flight partial has been echoed, so
	// each delta prints only its suffix.
	printed int
	// rendering suppresses raw delta echo when the final answer will be
	// markdown-rendered instead.
	rendering bool

	useDocs bool
}

// Deps bundles the layers the REPL drives.
type Deps struct {
	Config      *config.Config
	Store       *store.Store
	Coordinator *actions.Coordinator
	Manager     *stream.Manager
	Previewer   *actions.Previewer
}

// NewRepl creates the plain-mode chat loop.
func NewRepl(deps Deps) *Repl {
	return &Repl{
		cfg:         deps.Config,
		store:       deps.Store,
		coordinator: deps.Coordinator,
		manager:     deps.Manager,
		previewer:   deps.Previewer,
		useDocs:     deps.Config.Chat.UseDocsDefault,
	}
}

// OnStreamUpdate echoes streaming deltas for the active conversation. Wire it
// as the stream manager's update hook.
func (r *Repl) OnStreamUpdate(conversationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rendering || conversationID != r.store.ActiveID() {
		return
	}
	partial, ok := r.manager.PartialContent(conversationID)
	if !ok || len(partial) <= r.printed {
		return
	}
	fmt.Print(partial[r.printed:])
	r.printed = len(partial)
}

// OnNotice prints notices to stderr. Wire it as the notice sink.
func (r *Repl) OnNotice(n notify.Notice) {
	switch n.Kind {
	case notify.KindPersistent:
		fmt.Fprintln(os.Stderr, errorStyle.Render("[Error] ")+n.Text)
	case notify.KindWarning:
		fmt.Fprintln(os.Stderr, warningStyle.Render("[Warning] ")+n.Text)
	default:
		fmt.Fprintln(os.Stderr, infoStyle.Render("[Info] ")+n.Text)
	}
}

// Run executes the REPL until the user exits.
func (r *Repl) Run(ctx context.Context) error {
	if err := r.coordinator.Refresh(ctx); err != nil {
		return fmt.Errorf("could not reach the server at %s: %w", r.cfg.Server.BaseURL, err)
	}
	if err := r.openInitial(ctx); err != nil {
		return err
	}

	reader := newLineReader()
	defer reader.close()

	// First Ctrl+C during a response stops it; at the prompt liner turns
	// Ctrl+C into ErrPromptAborted.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			if id := r.store.ActiveID(); r.manager.Streaming(id) {
				r.manager.Stop(id)
				fmt.Fprintln(os.Stderr, "\n"+warningStyle.Render("[Stopped]"))
			}
		}
	}()

	r.printWelcome()

	for {
		input, err := reader.read(promptStyle.Render("docchat> "))
		if err != nil {
			// Ctrl+C at the prompt or Ctrl+D: exit cleanly.
			fmt.Println()
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			keepGoing, err := r.handleCommand(ctx, input)
			if err != nil {
				fmt.Fprintln(os.Stderr, errorStyle.Render("[Error] ")+err.Error())
			}
			if !keepGoing {
				return nil
			}
			continue
		}
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			return nil
		}

		r.ask(ctx, input)
	}
}

// openInitial selects a conversation to start in: the most recent, or a
// fresh one when none exist.
func (r *Repl) openInitial(ctx context.Context) error {
	convs := r.store.List()
	if len(convs) == 0 {
		_, err := r.coordinator.Create(ctx)
		return err
	}
	return r.coordinator.Open(ctx, convs[0].ID)
}

// =============================================================================
// ASKING
// =============================================================================

// ask runs one exchange and prints the answer.
func (r *Repl) ask(ctx context.Context, input string) {
	conversationID := r.store.ActiveID()
	if conversationID == "" {
		fmt.Fprintln(os.Stderr, errorStyle.Render("[Error] ")+"no conversation selected")
		return
	}

	// On a TTY the answer is markdown-rendered once complete; piped output
	// gets the raw stream as it arrives.
	useMarkdown := IsStdoutTTY()
	preCount := 0
	if conv, ok := r.store.Get(conversationID); ok {
		preCount = conv.AssistantCount()
	}

	r.mu.Lock()
	r.printed = 0
	r.rendering = useMarkdown
	r.mu.Unlock()

	fmt.Println()
	err := r.manager.Send(ctx, conversationID, input, r.useDocs)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("[Error] ")+err.Error())
		return
	}

	conv, ok := r.store.Get(conversationID)
	if !ok || conv.AssistantCount() <= preCount {
		// Failure recovery already surfaced a notice; nothing to print.
		fmt.Println()
		return
	}

	answer := lastAssistantMessage(conv)
	if answer == nil {
		fmt.Println()
		return
	}

	if useMarkdown {
		fmt.Print(renderMarkdown(answer.Content))
	} else {
		fmt.Println()
	}
	printAnswerMeta(answer)
	fmt.Println()
}

func lastAssistantMessage(conv *model.Conversation) *model.Message {
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		if conv.Messages[i].Role == model.RoleAssistant {
			return conv.Messages[i]
		}
	}
	return nil
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleCommand processes a slash command. Returns false to exit the loop.
func (r *Repl) handleCommand(ctx context.Context, input string) (bool, error) {
	parts := strings.Fields(input)
	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch command {
	case "/help", "/h", "/?":
		r.printHelp()
		return true, nil

	case "/list", "/l":
		r.printConversations()
		return true, nil

	case "/open", "/o":
		if len(args) == 0 {
			return true, fmt.Errorf("usage: /open N (see /list)")
		}
		return true, r.openByIndex(ctx, args[0])

	case "/new", "/n":
		conv, err := r.coordinator.Create(ctx)
		if err != nil {
			return true, err
		}
		fmt.Println(commandStyle.Render("[OK] ") + "started " + conv.DisplayTitle())
		return true, nil

	case "/rename":
		if len(args) == 0 {
			return true, fmt.Errorf("usage: /rename NEW TITLE")
		}
		title := strings.TrimSpace(strings.TrimPrefix(input, parts[0]))
		if err := r.coordinator.Rename(ctx, r.store.ActiveID(), title); err != nil {
			return true, err
		}
		fmt.Println(commandStyle.Render("[OK] ") + "renamed to " + title)
		return true, nil

	case "/pin":
		return true, r.setPinned(ctx, true)

	case "/unpin":
		return true, r.setPinned(ctx, false)

	case "/delete":
		active := r.store.Active()
		if active == nil {
			return true, fmt.Errorf("no conversation selected")
		}
		title := active.DisplayTitle()
		if err := r.coordinator.Delete(ctx, active.ID); err != nil {
			return true, err
		}
		fmt.Println(commandStyle.Render("[OK] ") + "deleted " + title)
		return true, nil

	case "/docs":
		return true, r.handleDocsCommand(ctx, args)

	case "/files", "/f":
		return true, r.handleFilesCommand(ctx, args)

	case "/upload", "/u":
		if len(args) == 0 {
			return true, fmt.Errorf("usage: /upload PATH")
		}
		path := strings.TrimSpace(strings.TrimPrefix(input, parts[0]))
		return true, r.handleUploadCommand(ctx, path)

	case "/pinorder":
		return true, r.handlePinOrderCommand(ctx, args)

	case "/export", "/e":
		return true, r.handleExportCommand(args)

	case "/quit", "/q", "/exit":
		return false, nil

	default:
		return true, fmt.Errorf("unknown command: %s (type /help for commands)", command)
	}
}

func (r *Repl) openByIndex(ctx context.Context, arg string) error {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return fmt.Errorf("usage: /open N (see /list)")
	}
	convs := r.store.List()
	if n < 1 || n > len(convs) {
		return fmt.Errorf("no conversation %d; /list shows %d", n, len(convs))
	}
	if err := r.coordinator.Open(ctx, convs[n-1].ID); err != nil {
		return err
	}
	fmt.Println(commandStyle.Render("[OK] ") + "switched to " + convs[n-1].DisplayTitle())
	return nil
}

func (r *Repl) setPinned(ctx context.Context, pinned bool) error {
	active := r.store.Active()
	if active == nil {
		return fmt.Errorf("no conversation selected")
	}
	if err := r.coordinator.SetPinned(ctx, active.ID, pinned); err != nil {
		return err
	}
	verb := "pinned"
	if !pinned {
		verb = "unpinned"
	}
	fmt.Println(commandStyle.Render("[OK] ") + verb + " " + active.DisplayTitle())
	return nil
}

func (r *Repl) handleDocsCommand(ctx context.Context, args []string) error {
	if len(args) == 0 {
		state := "on"
		if !r.useDocs {
			state = "off"
		}
		fmt.Println(infoStyle.Render("[Docs] ") + "document retrieval is " + state)
		return nil
	}

	// "/docs default on|off" persists the choice server-side.
	if strings.ToLower(args[0]) == "default" {
		if len(args) < 2 {
			return fmt.Errorf("usage: /docs default on|off")
		}
		var useDocs bool
		switch strings.ToLower(args[1]) {
		case "on":
			useDocs = true
		case "off":
			useDocs = false
		default:
			return fmt.Errorf("usage: /docs default on|off")
		}
		if err := r.coordinator.SetUseDocsDefault(ctx, useDocs); err != nil {
			return err
		}
		r.cfg.Chat.UseDocsDefault = useDocs
		fmt.Println(commandStyle.Render("[OK] ") + "new conversations will start with document retrieval " + args[1])
		return nil
	}

	switch strings.ToLower(args[0]) {
	case "on":
		r.useDocs = true
		fmt.Println(commandStyle.Render("[OK] ") + "answers will use your documents")
	case "off":
		r.useDocs = false
		fmt.Println(commandStyle.Render("[OK] ") + "answers will skip document retrieval")
	default:
		return fmt.Errorf("usage: /docs [on|off|default on|off]")
	}
	return nil
}

// handleUploadCommand attaches a local file to the active conversation.
func (r *Repl) handleUploadCommand(ctx context.Context, path string) error {
	active := r.store.Active()
	if active == nil {
		return fmt.Errorf("no conversation selected")
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("could not read %s: %w", path, err)
	}
	defer f.Close()

	att, err := r.coordinator.Upload(ctx, active.ID, filepath.Base(path), f)
	if err != nil {
		return err
	}
	fmt.Println(commandStyle.Render("[OK] ") + "attached " + att.Name + " (" + string(att.Kind) + ")")
	return nil
}

// handlePinOrderCommand reorders pinned conversations. Arguments are the
// numbers the pinned entries carry in /list, in the desired new order.
func (r *Repl) handlePinOrderCommand(ctx context.Context, args []string) error {
	var pinned []*model.Conversation
	for _, conv := range r.store.List() {
		if conv.IsPinned {
			pinned = append(pinned, conv)
		}
	}
	if len(pinned) < 2 {
		return fmt.Errorf("need at least two pinned conversations to reorder")
	}
	if len(args) != len(pinned) {
		return fmt.Errorf("usage: /pinorder N... naming all %d pinned conversations", len(pinned))
	}

	ids := make([]string, 0, len(pinned))
	seen := make(map[int]bool)
	for _, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 || n > len(pinned) || seen[n] {
			return fmt.Errorf("usage: /pinorder N... with each number 1-%d exactly once", len(pinned))
		}
		seen[n] = true
		ids = append(ids, pinned[n-1].ID)
	}

	if err := r.coordinator.Reorder(ctx, ids); err != nil {
		return err
	}
	fmt.Println(commandStyle.Render("[OK] ") + "pinned order updated")
	return nil
}

// handleExportCommand writes the active conversation's transcript to a file
// in the current directory.
func (r *Repl) handleExportCommand(args []string) error {
	active := r.store.Active()
	if active == nil {
		return fmt.Errorf("no conversation selected")
	}

	format := "md"
	if len(args) > 0 {
		format = strings.ToLower(args[0])
	}

	var path string
	var err error
	switch format {
	case "md", "markdown":
		path, err = export.Markdown(active, nil)
	case "json":
		path, err = export.JSON(active, nil)
	default:
		return fmt.Errorf("usage: /export [md|json]")
	}
	if err != nil {
		return err
	}
	fmt.Println(commandStyle.Render("[OK] ") + "saved to " + path)
	return nil
}

// handleFilesCommand lists the active conversation's attachments, or shows a
// cached preview of one of them.
func (r *Repl) handleFilesCommand(ctx context.Context, args []string) error {
	active := r.store.Active()
	if active == nil {
		return fmt.Errorf("no conversation selected")
	}
	if len(active.Attachments) == 0 {
		fmt.Println(infoStyle.Render("[No attachments in this conversation]"))
		return nil
	}

	if len(args) == 0 {
		fmt.Println()
		for i, att := range active.Attachments {
			fmt.Printf("  %d. %s (%s)\n", i+1, att.Name, string(att.Kind))
		}
		fmt.Println()
		return nil
	}

	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > len(active.Attachments) {
		return fmt.Errorf("usage: /files [N] with N between 1 and %d", len(active.Attachments))
	}
	if r.previewer == nil {
		return fmt.Errorf("previews are unavailable")
	}

	att := active.Attachments[n-1]
	preview, err := r.previewer.Preview(ctx, att)
	if err != nil {
		return fmt.Errorf("could not fetch %s: %w", att.Name, err)
	}

	fmt.Println()
	fmt.Println(headerStyle.Render(att.Name))
	fmt.Println(infoStyle.Render(strings.Repeat("-", len(att.Name))))
	fmt.Println(preview)
	fmt.Println()
	return nil
}

// =============================================================================
// DISPLAY
// =============================================================================

func (r *Repl) printWelcome() {
	fmt.Println()
	fmt.Println(headerStyle.Render("docchat"))
	fmt.Println(infoStyle.Render(strings.Repeat("-", 30)))
	fmt.Printf("%s %s\n", infoStyle.Render("Server:"), commandStyle.Render(r.cfg.Server.BaseURL))
	if conv := r.store.Active(); conv != nil {
		fmt.Printf("%s %s\n", infoStyle.Render("Conversation:"), commandStyle.Render(conv.DisplayTitle()))
	}
	fmt.Println()
	fmt.Println(infoStyle.Render("Type your question and press Enter. Commands: /help, /quit"))
	fmt.Println()
}

func (r *Repl) printHelp() {
	fmt.Println()
	fmt.Println(headerStyle.Render("Available Commands"))
	fmt.Println(infoStyle.Render(strings.Repeat("-", 20)))
	fmt.Println()

	commands := []struct {
		cmd  string
		desc string
	}{
		{"/help, /h", "Show this help"},
		{"/list, /l", "List conversations"},
		{"/open N", "Switch to conversation N"},
		{"/new, /n", "Start a new conversation"},
		{"/rename TITLE", "Rename the current conversation"},
		{"/pin, /unpin", "Pin or unpin the current conversation"},
		{"/delete", "Delete the current conversation"},
		{"/docs [on|off]", "Toggle document retrieval"},
		{"/docs default on|off", "Set the retrieval default for new conversations"},
		{"/files [N]", "List attachments, or preview attachment N"},
		{"/upload PATH", "Attach a local file to the conversation"},
		{"/pinorder N...", "Reorder pinned conversations by their /list numbers"},
		{"/export [md|json]", "Save the conversation transcript to a file"},
		{"/quit, /q", "Exit"},
	}
	for _, c := range commands {
		fmt.Printf("  %s  %s\n",
			commandStyle.Render(fmt.Sprintf("%-15s", c.cmd)),
			infoStyle.Render(c.desc))
	}

	fmt.Println()
	fmt.Println(infoStyle.Render("Tip: Ctrl+C stops the current response, Ctrl+D exits"))
	fmt.Println()
}

func (r *Repl) printConversations() {
	convs := r.store.List()
	if len(convs) == 0 {
		fmt.Println(infoStyle.Render("[No conversations]"))
		return
	}

	fmt.Println()
	activeID := r.store.ActiveID()
	for i, conv := range convs {
		marker := "  "
		if conv.ID == activeID {
			marker = commandStyle.Render("> ")
		}
		pin := ""
		if conv.IsPinned {
			pin = warningStyle.Render(" *")
		}
		fmt.Printf("%s%d. %s%s\n", marker, i+1, conv.DisplayTitle(), pin)
	}
	fmt.Println()
}
