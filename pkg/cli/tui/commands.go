package tui

import (
	"context"
	"errors"
	"fmt"

	"redirect-mgmt-go/pkg/cli"
	"redirect-mgmt-go/pkg/cli/links"
	"redirect-mgmt-go/pkg/coord"
	"redirect-mgmt-go/pkg/provider"
	"redirect-mgmt-go/pkg/utils"

	tea "github.com/charmbracelet/bubbletea"
)

// execute parses one input line and runs it. Every failure is printed; none
// ends the session.
func (m *Model) execute(line string) tea.Cmd {
	cmd, err := cli.ParseCommand(line)
	if errors.Is(err, cli.ErrEmptyInput) {
		return nil
	}
	m.print(mutedStyle.Render("> " + line))
	if err != nil {
		m.printErr(err)
		m.print(helpStyle.Render("Type 'help' to display options!"))
		return nil
	}
	m.log.Debug("command", "name", cmd.Name, "input", cmd.Raw)

	switch cmd.Name {
	case cli.CmdNew:
		target, err := utils.ValidateURL(cmd.URL)
		if err != nil {
			m.printErr(err)
			return nil
		}
		return m.start("Sending request to create...", m.createCmd(target))

	case cli.CmdSelect:
		if err := m.reg.Select(cmd.ID); err != nil {
			m.printErr(fmt.Errorf("Link(%d) is invalid", cmd.ID))
			m.print(warningStyle.Render("Available links:") + "\n" + links.FormatTableOutput(m.reg.List()))
			return nil
		}
		m.print(renderSuccess(fmt.Sprintf("Link(%d) selected!", cmd.ID)))

	case cli.CmdUpdate:
		sel, ok := m.reg.Selected()
		if !ok {
			m.printErr(errors.New("no link selected"))
			m.print(links.FormatTableOutput(m.reg.List()))
			return nil
		}
		target, err := utils.ValidateURL(cmd.URL)
		if err != nil {
			m.printErr(err)
			return nil
		}
		return m.start("Sending request to update...", m.updateCmd(sel.ID, sel.Alias, target))

	case cli.CmdDelete:
		sel, hadSel := m.reg.Selected()
		link, ok := m.reg.Remove(cmd.ID)
		if !ok {
			m.printErr(fmt.Errorf("Link(%d) is invalid", cmd.ID))
			m.print(links.FormatTableOutput(m.reg.List()))
			return nil
		}
		m.print(renderSuccess(fmt.Sprintf("Link(%d) deleted!", link.ID)))
		if hadSel && sel.ID == link.ID {
			m.print(warningStyle.Render(fmt.Sprintf("Link(%d) unselected!", link.ID)))
		}
		return m.submit("Stopping monitoring...", coord.Delete{
			ID:       link.ID,
			Alias:    link.Alias,
			ShortURL: link.ShortURL,
		})

	case cli.CmdCurrent:
		sel, ok := m.reg.Selected()
		if !ok {
			m.printErr(errors.New("no link is selected"))
			return nil
		}
		m.print(links.FormatDetail(sel))

	case cli.CmdDelay:
		m.interval = cmd.Interval
		m.print(renderSuccess(fmt.Sprintf("Pinging interval changed to %d seconds!", int(cmd.Interval.Seconds()))))
		return m.submit("Changing interval...", coord.Delay{Interval: cmd.Interval})

	case cli.CmdPing:
		return m.submit("Ping sweeping all links...", coord.Ping{})

	case cli.CmdStart, cli.CmdStop:
		m.online = cmd.Name == cli.CmdStart
		if m.online {
			m.print(renderSuccess("Scheduled ping checks started"))
		} else {
			m.print(renderWarning("Scheduled ping checks stopped"))
		}
		return m.submit("Notifying monitor...", coord.Online{Enabled: m.online})

	case cli.CmdThreads:
		m.print(renderSuccess(fmt.Sprintf("Checking up to %d links at once", cmd.Workers)))
		return m.submit("Resizing worker pool...", coord.Threads{Workers: cmd.Workers})

	case cli.CmdToken:
		tokens := m.prov.Tokens()
		if err := tokens.Select(cmd.ID); err != nil {
			m.printErr(err)
			m.print(warningStyle.Render("Available tokens:") + "\n" + links.FormatTokens(tokens.List()))
			return nil
		}
		for _, t := range tokens.List() {
			if t.Selected {
				m.print(renderSuccess(fmt.Sprintf("Token changed to: %d. - %s", t.ID, t.Masked())))
			}
		}

	case cli.CmdTokens:
		m.print(links.FormatTokens(m.prov.Tokens().List()))

	case cli.CmdInfo:
		out := links.FormatAll(m.reg.List()) + "\n" + renderDivider(34) + "\n" + links.FormatInterval(m.interval)
		if summary := metricsSummary(m.ctx, m.opts.Metrics); summary != "" {
			out += "\n" + summary
		}
		m.print(out)

	case cli.CmdList:
		m.print(links.FormatTableOutput(m.reg.List()) + renderDivider(34) + "\n" + links.FormatInterval(m.interval))

	case cli.CmdBatch:
		return m.startBatch(cmd.Path)

	case cli.CmdCopy:
		id := cmd.ID
		if id == 0 {
			sel, ok := m.reg.Selected()
			if !ok {
				m.printErr(errors.New("no link is selected"))
				return nil
			}
			id = sel.ID
		}
		link, ok := m.reg.Get(id)
		if !ok {
			m.printErr(fmt.Errorf("Link(%d) is invalid", id))
			return nil
		}
		write := m.opts.Clipboard
		return func() tea.Msg {
			return copiedMsg{id: link.ID, url: link.ShortURL, err: write(link.ShortURL)}
		}

	case cli.CmdHelp:
		m.print(HelpContent())

	case cli.CmdClear:
		m.blocks = nil
		m.refresh()
		return tea.ClearScreen

	case cli.CmdExit:
		return m.quit()
	}
	return nil
}

func (m *Model) createCmd(target string) tea.Cmd {
	prov, timeout, check := m.prov, m.opts.CreateTimeout, !m.opts.NoCheck
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, timeout)
		defer cancel()
		if check {
			if err := prov.CheckTarget(ctx, target); err != nil {
				return createdMsg{err: err}
			}
		}
		link, err := prov.Create(ctx, target, nil)
		return createdMsg{link: link, err: err}
	}
}

func (m *Model) onCreated(msg createdMsg) tea.Cmd {
	if msg.err != nil {
		m.busy = false
		m.printErr(msg.err)
		return nil
	}
	link := m.reg.Add(*msg.link)
	_ = m.reg.Select(link.ID)
	m.print(renderSuccess(fmt.Sprintf("Link(%d) created: %s --> %s", link.ID, link.ShortURL, link.IntendedTarget)))
	return m.submit("Registering with monitor...", m.trackMsg(link))
}

func (m *Model) updateCmd(id int, alias, target string) tea.Cmd {
	prov := m.prov
	opts := provider.UpdateOptions{Retries: m.opts.UpdateRetries, Timeout: m.opts.UpdateTimeout}
	return func() tea.Msg {
		link, err := prov.Update(m.ctx, alias, target, opts)
		return updatedMsg{id: id, link: link, err: err}
	}
}

func (m *Model) onUpdated(msg updatedMsg) tea.Cmd {
	if msg.err != nil {
		m.busy = false
		m.printErr(msg.err)
		return nil
	}
	link, ok := m.reg.Replace(msg.id, msg.link.IntendedTarget, links.Domain(*msg.link))
	if !ok {
		m.busy = false
		m.print(renderWarning(fmt.Sprintf("Link(%d) was removed before the update finished", msg.id)))
		return nil
	}
	m.print(renderSuccess(fmt.Sprintf("Link(%d) updated: %s --> %s", link.ID, link.ShortURL, link.IntendedTarget)))
	return m.submit("Registering with monitor...", m.trackMsg(link))
}

func (m *Model) startBatch(path string) tea.Cmd {
	raw, err := utils.LoadList(path, "")
	if err != nil {
		m.printErr(err)
		return nil
	}

	urls := make([]string, 0, len(raw))
	for _, u := range raw {
		v, err := utils.ValidateURL(u)
		if err != nil {
			m.print(renderWarning(fmt.Sprintf("skipping %s: %v", u, err)))
			continue
		}
		urls = append(urls, v)
	}
	if len(urls) == 0 {
		m.printErr(fmt.Errorf("no valid URLs in %s", path))
		return nil
	}

	prov, timeout, check := m.prov, m.opts.CreateTimeout, !m.opts.NoCheck
	return m.start(fmt.Sprintf("Creating %d links from list...", len(urls)), func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, timeout)
		defer cancel()
		return batchDoneMsg{results: cli.BatchCreate(ctx, prov, urls, cli.BatchWorkers, check)}
	})
}

func (m *Model) onBatchDone(msg batchDoneMsg) tea.Cmd {
	var track []coord.Message
	for _, r := range msg.results {
		if r.Err != nil {
			m.printErr(fmt.Errorf("%s: %w", r.URL, r.Err))
			continue
		}
		link := m.reg.Add(*r.Link)
		track = append(track, m.trackMsg(link))
		m.print(renderSuccess(fmt.Sprintf("Link(%d) created: %s --> %s", link.ID, link.ShortURL, link.IntendedTarget)))
	}
	m.print(renderInfo(fmt.Sprintf("Created %d of %d links", len(track), len(msg.results))))

	if len(track) == 0 {
		m.busy = false
		return nil
	}
	return m.submitAll("Registering with monitor...", track)
}
