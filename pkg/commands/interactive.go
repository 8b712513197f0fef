package commands

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"vancedhelper/pkg/config"
	"vancedhelper/pkg/help"
	"vancedhelper/pkg/history"
	"vancedhelper/pkg/prefs"
	"vancedhelper/pkg/prompt"
	"vancedhelper/pkg/reminders"
	"vancedhelper/pkg/transport"
	"vancedhelper/pkg/version"
)

// ChannelManager is the slice of the channel manager the status command
// needs, declared here to avoid a dependency on the channels package.
type ChannelManager interface {
	EnabledChannels() []ChannelInfo
}

// ChannelInfo describes one channel for status output.
type ChannelInfo interface {
	Name() string
	Running() bool
}

// RecentLister is implemented by transports that can enumerate recent
// messages, which the purge command needs.
type RecentLister interface {
	RecentMessages(ctx context.Context, channelID string, limit int) ([]transport.MessageRef, error)
}

// Dependencies holds what the interactive commands need.
type Dependencies struct {
	Config    *config.Config
	Prompter  *prompt.Prompter
	Reminders *reminders.Manager
	Prefs     *prefs.Manager
	History   *history.Store
	Library   *help.Library
	Pager     *help.Pager
	Channels  ChannelManager
}

// Keycap reactions seeded under a poll, in option order.
var pollKeycaps = []string{"1️⃣", "2️⃣", "3️⃣", "4️⃣", "5️⃣", "6️⃣", "7️⃣", "8️⃣", "9️⃣"}

// schedulePattern shapes schedule answers before the reminders manager
// parses them: "in <N>m/h", an @every descriptor, or a 5-field cron
// line.
var schedulePattern = regexp.MustCompile(`(?i)^(in\s+\d+\s*[mh]|@every\s+\S+|\S+(\s+\S+){4})$`)

// RegisterInteractiveCommands registers the commands that use the
// prompt engine and the rest of the stack.
func RegisterInteractiveCommands(registry *Registry, deps Dependencies) error {
	cmds := []*Command{
		{
			Name:        "help",
			Description: "Show commands or a help topic",
			Usage:       "help [command|topic]",
			Handler:     helpHandler(registry, deps),
		},
		{
			Name:        "status",
			Description: "Show bot status",
			Usage:       "status",
			Handler:     statusHandler(deps),
		},
		{
			Name:        "remind",
			Description: "Create, list, or cancel reminders",
			Usage:       "remind [list|cancel]",
			Handler:     remindHandler(deps),
		},
		{
			Name:        "prefs",
			Description: "Change your preferences",
			Usage:       "prefs",
			Handler:     prefsHandler(deps),
		},
		{
			Name:        "purge",
			Description: "Delete recent messages after confirmation",
			Usage:       "purge <count>",
			Handler:     purgeHandler(deps),
		},
		{
			Name:        "poll",
			Description: "Post a reaction poll",
			Usage:       "poll \"question\" option1 option2 ...",
			Handler:     pollHandler(deps),
		},
		{
			Name:        "history",
			Description: "Show your recent prompts",
			Usage:       "history [count]",
			Handler:     historyHandler(deps),
		},
		{
			Name:        "faq",
			Description: "Show a help topic without paging",
			Usage:       "faq <topic>",
			Handler:     faqHandler(deps),
		},
	}

	for _, cmd := range cmds {
		if err := registry.Register(cmd); err != nil {
			return fmt.Errorf("failed to register %s: %w", cmd.Name, err)
		}
	}

	return nil
}

// promptConcluded reports whether the prompt flow already told the user
// everything: busy, cancelled, and timed-out prompts post their own
// notices.
func promptConcluded(err error) bool {
	return errors.Is(err, prompt.ErrPromptOpen) ||
		errors.Is(err, prompt.ErrCancelled) ||
		errors.Is(err, prompt.ErrTimedOut)
}

func (d Dependencies) session(req CommandRequest) *prompt.Session {
	return d.Prompter.Session(req.Transport, req.UserID, req.ChannelID, req.Trigger)
}

// helpHandler shows the command list, one command's usage, or a paged
// help topic.
func helpHandler(registry *Registry, deps Dependencies) CommandHandler {
	return func(ctx context.Context, req CommandRequest) (CommandResponse, error) {
		arg := strings.ToLower(strings.TrimSpace(req.Args))
		if arg != "" {
			if cmd, ok := registry.Get(arg); ok {
				content := fmt.Sprintf("**%s%s**\n\n%s\n\n**Usage:** %s%s",
					registry.Prefix(), cmd.Name, cmd.Description, registry.Prefix(), cmd.Usage)
				return CommandResponse{Content: content}, nil
			}
			if topic, ok := deps.Library.Get(arg); ok {
				return showTopic(ctx, deps, req, topic)
			}
			return CommandResponse{
				Content: fmt.Sprintf("No command or topic named `%s`.", arg),
			}, nil
		}

		cmds := registry.List()
		sort.Slice(cmds, func(i, j int) bool {
			return cmds[i].Name < cmds[j].Name
		})

		var sb strings.Builder
		sb.WriteString("🤖 **Available Commands**\n\n")
		for _, cmd := range cmds {
			sb.WriteString(fmt.Sprintf("**%s%s** - %s\n", registry.Prefix(), cmd.Name, cmd.Description))
		}
		if names := deps.Library.Names(); len(names) > 0 {
			sb.WriteString("\n**Topics:** " + strings.Join(names, ", ") + "\n")
		}
		sb.WriteString(fmt.Sprintf("\nUse `%shelp [command|topic]` for details.", registry.Prefix()))

		return CommandResponse{Content: sb.String()}, nil
	}
}

// showTopic pages a topic with reactions where the transport supports
// them and with a typed `more` prompt everywhere else.
func showTopic(ctx context.Context, deps Dependencies, req CommandRequest, topic *help.Topic) (CommandResponse, error) {
	if req.Transport.Capabilities().Reactions && len(topic.Pages) > 1 {
		if err := deps.Pager.Show(ctx, req.Transport, req.ChannelID, req.UserID, topic); err != nil {
			return CommandResponse{}, err
		}
		return CommandResponse{}, nil
	}

	if len(topic.Pages) < 2 {
		return CommandResponse{Content: help.RenderTopic(topic)}, nil
	}

	page := 0
	msg, err := req.Transport.Send(ctx, req.ChannelID, help.RenderPage(topic, page))
	if err != nil {
		return CommandResponse{}, fmt.Errorf("sending help page: %w", err)
	}

	s := deps.session(req)
	for page < len(topic.Pages)-1 {
		_, err := s.AskMessage(ctx, "Type `more` for the next page.", prompt.OneOf("more", "More"))
		if err != nil {
			if promptConcluded(err) {
				return CommandResponse{}, nil
			}
			return CommandResponse{}, err
		}

		page++
		if err := req.Transport.Edit(ctx, msg.Ref(), help.RenderPage(topic, page)); err != nil {
			return CommandResponse{}, fmt.Errorf("editing help page: %w", err)
		}
	}

	return CommandResponse{}, nil
}

// statusHandler reports runtime and channel state.
func statusHandler(deps Dependencies) CommandHandler {
	return func(ctx context.Context, req CommandRequest) (CommandResponse, error) {
		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)

		var sb strings.Builder
		sb.WriteString("✅ **VancedHelper Status**\n\n")
		sb.WriteString(fmt.Sprintf("Channel: %s\n", req.Channel))
		sb.WriteString(fmt.Sprintf("Version: %s\n", version.GetVersion()))
		sb.WriteString(fmt.Sprintf("OS: %s/%s\n", runtime.GOOS, runtime.GOARCH))
		sb.WriteString(fmt.Sprintf("Go: %s\n", runtime.Version()))
		sb.WriteString(fmt.Sprintf("Uptime: %s\n", time.Since(processStartTime).Round(time.Second)))
		sb.WriteString(fmt.Sprintf("Memory: %.2f MB\n", float64(mem.Alloc)/1024.0/1024.0))
		sb.WriteString(fmt.Sprintf("Open prompts: %d\n", deps.Prompter.Registry().Count()))

		if deps.Reminders != nil {
			sb.WriteString(fmt.Sprintf("Reminders: %d scheduled\n", deps.Reminders.Count()))
		}

		if deps.Channels != nil {
			var states []string
			for _, ch := range deps.Channels.EnabledChannels() {
				marker := "🔴"
				if ch.Running() {
					marker = "🟢"
				}
				states = append(states, fmt.Sprintf("%s %s", marker, ch.Name()))
			}
			if len(states) > 0 {
				sb.WriteString("Channels: " + strings.Join(states, ", ") + "\n")
			}
		}

		return CommandResponse{Content: sb.String()}, nil
	}
}

// remindHandler lists, cancels, or interactively creates reminders.
func remindHandler(deps Dependencies) CommandHandler {
	return func(ctx context.Context, req CommandRequest) (CommandResponse, error) {
		if deps.Reminders == nil || !deps.Config.Reminders.Enabled {
			return CommandResponse{Content: "Reminders are disabled."}, nil
		}

		switch strings.ToLower(strings.TrimSpace(req.Args)) {
		case "list":
			return listReminders(deps, req)
		case "cancel":
			return cancelReminder(ctx, deps, req)
		default:
			return createReminder(ctx, deps, req)
		}
	}
}

func listReminders(deps Dependencies, req CommandRequest) (CommandResponse, error) {
	rems := deps.Reminders.ListByUser(req.UserID)
	if len(rems) == 0 {
		return CommandResponse{Content: "You have no reminders."}, nil
	}

	var sb strings.Builder
	sb.WriteString("⏰ **Your Reminders**\n\n")
	for i, r := range rems {
		sb.WriteString(fmt.Sprintf("%d. %s — %s\n", i+1, r.Text, describeSchedule(r)))
	}
	return CommandResponse{Content: sb.String()}, nil
}

func cancelReminder(ctx context.Context, deps Dependencies, req CommandRequest) (CommandResponse, error) {
	rems := deps.Reminders.ListByUser(req.UserID)
	if len(rems) == 0 {
		return CommandResponse{Content: "You have no reminders to cancel."}, nil
	}

	labels := make([]string, len(rems))
	for i, r := range rems {
		labels[i] = fmt.Sprintf("%s — %s", r.Text, describeSchedule(r))
	}

	s := deps.session(req)
	chosen, err := prompt.ChooseOne(ctx, s, "Which reminder should I cancel?", labels)
	if err != nil {
		if promptConcluded(err) {
			return CommandResponse{}, nil
		}
		return CommandResponse{}, err
	}

	for i, label := range labels {
		if label == chosen {
			if err := deps.Reminders.Remove(req.UserID, rems[i].ID); err != nil {
				return CommandResponse{Content: "Couldn't cancel that reminder: " + err.Error()}, nil
			}
			return CommandResponse{Content: "Cancelled: " + rems[i].Text}, nil
		}
	}
	return CommandResponse{}, fmt.Errorf("chosen reminder %q not found", chosen)
}

func createReminder(ctx context.Context, deps Dependencies, req CommandRequest) (CommandResponse, error) {
	s := deps.session(req)

	text, err := s.AskMessage(ctx, "What should I remind you about?", prompt.Any())
	if err != nil {
		if promptConcluded(err) {
			return CommandResponse{}, nil
		}
		return CommandResponse{}, err
	}

	schedule, err := s.AskMessage(ctx,
		"When? Use `in 20m`, `in 3h`, a cron line like `0 9 * * 1`, or `@every 1h`.",
		prompt.Match(schedulePattern),
		prompt.WithErrorTemplate("`{VALUE}` is not a schedule I understand! Please try again."))
	if err != nil {
		if promptConcluded(err) {
			return CommandResponse{}, nil
		}
		return CommandResponse{}, err
	}

	r, err := deps.Reminders.Add(req.UserID, req.Channel, req.ChannelID, text, schedule)
	if err != nil {
		return CommandResponse{Content: "Couldn't create the reminder: " + err.Error()}, nil
	}

	return CommandResponse{Content: "⏰ Reminder set! " + describeSchedule(r)}, nil
}

func describeSchedule(r *reminders.Reminder) string {
	switch r.Kind {
	case reminders.ScheduleAt:
		return "fires " + r.NextRun.Format("Mon 15:04")
	default:
		return fmt.Sprintf("`%s`, next %s", r.Schedule, r.NextRun.Format("Mon 15:04"))
	}
}

// prefsHandler walks the user through changing one preference.
func prefsHandler(deps Dependencies) CommandHandler {
	return func(ctx context.Context, req CommandRequest) (CommandResponse, error) {
		s := deps.session(req)

		fields := []string{"preferred name", "mention style", "timezone"}
		field, err := prompt.ChooseOne(ctx, s, "Which preference do you want to change?", fields)
		if err != nil {
			if promptConcluded(err) {
				return CommandResponse{}, nil
			}
			return CommandResponse{}, err
		}

		profile, _, err := deps.Prefs.Get(ctx, req.Channel, req.UserID)
		if err != nil {
			return CommandResponse{}, fmt.Errorf("loading preferences: %w", err)
		}

		switch field {
		case "preferred name":
			name, err := s.AskMessage(ctx, "What should I call you?", prompt.Any())
			if err != nil {
				if promptConcluded(err) {
					return CommandResponse{}, nil
				}
				return CommandResponse{}, err
			}
			profile.PreferredName = name

		case "mention style":
			style, err := s.AskMessage(ctx,
				"How should I address you? Answer `mention`, `name`, or `none`.",
				prompt.OneOf("mention", "name", "none"))
			if err != nil {
				if promptConcluded(err) {
					return CommandResponse{}, nil
				}
				return CommandResponse{}, err
			}
			profile.MentionStyle = style

		case "timezone":
			tz, err := s.AskMessage(ctx, "Which timezone are you in? For example `Europe/Berlin`.", prompt.Any())
			if err != nil {
				if promptConcluded(err) {
					return CommandResponse{}, nil
				}
				return CommandResponse{}, err
			}
			if !prefs.ValidTimezone(tz) {
				return CommandResponse{Content: fmt.Sprintf("`%s` is not a timezone I know.", tz)}, nil
			}
			profile.Timezone = strings.TrimSpace(tz)
		}

		if err := deps.Prefs.Save(ctx, req.Channel, req.UserID, profile); err != nil {
			return CommandResponse{}, fmt.Errorf("saving preferences: %w", err)
		}

		return CommandResponse{Content: "Saved! " + profile.Summary()}, nil
	}
}

// purgeHandler deletes recent messages after a reaction confirmation.
func purgeHandler(deps Dependencies) CommandHandler {
	return func(ctx context.Context, req CommandRequest) (CommandResponse, error) {
		n, err := strconv.Atoi(strings.TrimSpace(req.Args))
		if err != nil || n < 1 || n > 50 {
			return CommandResponse{Content: "Tell me how many messages to delete, between 1 and 50."}, nil
		}

		lister, ok := req.Transport.(RecentLister)
		if !ok {
			return CommandResponse{Content: "This channel cannot purge messages."}, nil
		}

		s := deps.session(req)
		em, err := s.AskReaction(ctx,
			fmt.Sprintf("Delete the last %d messages? React ✅ to confirm or ❌ to abort.", n),
			prompt.OneOf("✅", "❌"),
			prompt.WithReactions())
		if err != nil {
			if errors.Is(err, prompt.ErrReactionsUnsupported) {
				return CommandResponse{Content: "This channel does not support reactions."}, nil
			}
			if promptConcluded(err) {
				return CommandResponse{}, nil
			}
			return CommandResponse{}, err
		}

		if em.Name == "❌" {
			return CommandResponse{Content: "Purge aborted."}, nil
		}

		refs, err := lister.RecentMessages(ctx, req.ChannelID, n)
		if err != nil {
			return CommandResponse{}, fmt.Errorf("listing recent messages: %w", err)
		}

		deleted := 0
		for _, ref := range refs {
			if err := req.Transport.Delete(ctx, ref); err == nil {
				deleted++
			}
		}

		return CommandResponse{Content: fmt.Sprintf("🧹 Deleted %d messages.", deleted)}, nil
	}
}

// pollHandler posts a question and seeds one keycap per option.
func pollHandler(deps Dependencies) CommandHandler {
	return func(ctx context.Context, req CommandRequest) (CommandResponse, error) {
		question, options, err := parsePollArgs(req.Args)
		if err != nil {
			return CommandResponse{Content: err.Error()}, nil
		}

		if !req.Transport.Capabilities().Reactions {
			return CommandResponse{Content: "Polls need a channel with reactions."}, nil
		}

		var sb strings.Builder
		sb.WriteString("📊 **" + question + "**\n\n")
		for i, opt := range options {
			sb.WriteString(fmt.Sprintf("%s %s\n", pollKeycaps[i], opt))
		}

		msg, err := req.Transport.Send(ctx, req.ChannelID, sb.String())
		if err != nil {
			return CommandResponse{}, fmt.Errorf("posting poll: %w", err)
		}

		for i := range options {
			em := transport.Emoji{Name: pollKeycaps[i]}
			if err := req.Transport.React(ctx, msg.Ref(), em); err != nil {
				return CommandResponse{}, fmt.Errorf("seeding poll reaction: %w", err)
			}
		}

		return CommandResponse{}, nil
	}
}

func parsePollArgs(args string) (string, []string, error) {
	args = strings.TrimSpace(args)
	if !strings.HasPrefix(args, "\"") {
		return "", nil, fmt.Errorf("put the question in quotes: poll \"question\" option1 option2")
	}

	end := strings.Index(args[1:], "\"")
	if end < 0 {
		return "", nil, fmt.Errorf("the question quote is never closed")
	}

	question := strings.TrimSpace(args[1 : end+1])
	options := strings.Fields(args[end+2:])

	if question == "" {
		return "", nil, fmt.Errorf("the question cannot be empty")
	}
	if len(options) < 2 {
		return "", nil, fmt.Errorf("a poll needs at least two options")
	}
	if len(options) > len(pollKeycaps) {
		return "", nil, fmt.Errorf("a poll can have at most %d options", len(pollKeycaps))
	}

	return question, options, nil
}

// historyHandler shows the caller's recent prompt outcomes.
func historyHandler(deps Dependencies) CommandHandler {
	return func(ctx context.Context, req CommandRequest) (CommandResponse, error) {
		if deps.History == nil {
			return CommandResponse{Content: "Prompt history is disabled."}, nil
		}

		n := 5
		if arg := strings.TrimSpace(req.Args); arg != "" {
			parsed, err := strconv.Atoi(arg)
			if err != nil || parsed < 1 {
				return CommandResponse{Content: "Give me a count, like `history 10`."}, nil
			}
			if parsed > 20 {
				parsed = 20
			}
			n = parsed
		}

		entries, err := deps.History.RecentByUser(ctx, req.UserID, n)
		if err != nil {
			return CommandResponse{}, fmt.Errorf("loading history: %w", err)
		}
		if len(entries) == 0 {
			return CommandResponse{Content: "No prompts on record for you."}, nil
		}

		var sb strings.Builder
		sb.WriteString("📜 **Your Recent Prompts**\n\n")
		for _, e := range entries {
			sb.WriteString(fmt.Sprintf("[%s] %s", e.Outcome, firstLine(e.Question)))
			if e.Answer != "" {
				sb.WriteString(" → " + e.Answer)
			}
			if e.Retries > 0 {
				sb.WriteString(fmt.Sprintf(" (%d retries)", e.Retries))
			}
			sb.WriteString("\n")
		}

		return CommandResponse{Content: sb.String()}, nil
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	const limit = 60
	runes := []rune(s)
	if len(runes) > limit {
		return string(runes[:limit-1]) + "…"
	}
	return s
}

// faqHandler prints a whole topic at once.
func faqHandler(deps Dependencies) CommandHandler {
	return func(ctx context.Context, req CommandRequest) (CommandResponse, error) {
		arg := strings.TrimSpace(req.Args)
		if arg == "" {
			return CommandResponse{
				Content: "Which topic? Try one of: " + strings.Join(deps.Library.Names(), ", "),
			}, nil
		}

		topic, ok := deps.Library.Get(arg)
		if !ok {
			return CommandResponse{Content: fmt.Sprintf("No topic named `%s`.", arg)}, nil
		}

		return CommandResponse{Content: help.RenderTopic(topic)}, nil
	}
}
