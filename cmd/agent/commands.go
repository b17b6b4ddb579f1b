package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/petasbytes/snapbooks/internal/contacts"
	"github.com/petasbytes/snapbooks/internal/invoice"
	"github.com/petasbytes/snapbooks/internal/server"
	"github.com/petasbytes/snapbooks/internal/telegram"
	"github.com/petasbytes/snapbooks/internal/usage"
)

func runServe(ctx context.Context, cmd *cli.Command) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if cmd.IsSet("listen") {
		a.cfg.Listen.Address = cmd.String("listen")
	}
	if cmd.IsSet("telegram-token") {
		a.cfg.Telegram.BotToken = cmd.String("telegram-token")
	}

	agent, err := a.buildRunner(ctx)
	if err != nil {
		return err
	}

	srv := &server.Server{
		Archive:      a.archive,
		Logger:       a.logger,
		AllowOrigins: a.cfg.Listen.AllowOrigins,
	}
	var hook *telegram.Handler
	if tg := a.cfg.Telegram; tg.BotToken != "" {
		hook = &telegram.Handler{
			Client: telegram.NewClient(telegram.ClientConfig{
				Token:    tg.BotToken,
				APIBase:  tg.APIBase,
				SendRate: tg.SendRate,
				Logger:   a.logger,
			}),
			Agent:    agent,
			Sessions: a.sessions,
			Dedup:    telegram.NewDedup(telegram.DefaultDedupCapacity),
			Locks:    &telegram.KeyLock{},
			Logger:   a.logger,
		}
		srv.Webhook = hook
	} else {
		a.logger.Warn("telegram_disabled", "reason", "telegram.bot_token is empty")
	}

	err = srv.Run(ctx, a.cfg.Listen.Address)
	if hook != nil {
		// Background replies still write to the database.
		hook.Wait()
	}
	return err
}

func runContactsAdd(ctx context.Context, cmd *cli.Command) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	c, err := a.contacts.Add(ctx, contacts.Contact{
		Name:    cmd.String("name"),
		GSTIN:   cmd.String("gstin"),
		Address: cmd.String("address"),
		City:    cmd.String("city"),
		State:   cmd.String("state"),
		Phone:   cmd.String("phone"),
		Email:   cmd.String("email"),
	})
	if err != nil {
		return err
	}
	fmt.Printf("added %s (%s)\n", c.Name, c.ID)
	return nil
}

func runContactsList(ctx context.Context, cmd *cli.Command) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	var list []contacts.Contact
	if q := cmd.Args().First(); q != "" {
		list, err = a.contacts.Search(ctx, q)
	} else {
		list, err = a.contacts.List(ctx)
	}
	if err != nil {
		return err
	}
	writeContacts(os.Stdout, list)
	return nil
}

func writeContacts(w io.Writer, list []contacts.Contact) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Name", "GSTIN", "City", "State", "Phone"})
	for _, c := range list {
		table.Append([]string{c.ID, c.Name, c.GSTIN, c.City, c.State, c.Phone})
	}
	table.Render()
}

func runInvoices(ctx context.Context, cmd *cli.Command) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	recs, err := a.archive.List(ctx, cmd.Int("limit"), cmd.String("user"))
	if err != nil {
		return err
	}
	writeInvoices(os.Stdout, recs)
	return nil
}

func writeInvoices(w io.Writer, recs []invoice.Record) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Number", "Customer", "Date", "Type", "Total", "Created"})
	for _, r := range recs {
		table.Append([]string{
			r.InvoiceNumber,
			r.CustomerName,
			r.Date,
			r.DocumentType,
			"₹" + humanize.CommafWithDigits(r.GrandTotal, 2),
			humanize.Time(r.CreatedAt),
		})
	}
	table.Render()
}

func runUsage(ctx context.Context, cmd *cli.Command) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	conv := cmd.String("conversation")
	total, err := a.ledger.Summary(ctx, conv)
	if err != nil {
		return err
	}
	byModel, err := a.ledger.SummaryByModel(ctx, conv)
	if err != nil {
		return err
	}
	writeUsage(os.Stdout, total, byModel)
	return nil
}

func writeUsage(w io.Writer, total *usage.Summary, byModel map[string]*usage.Summary) {
	models := make([]string, 0, len(byModel))
	for m := range byModel {
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool {
		return byModel[models[i]].TotalCostUSD > byModel[models[j]].TotalCostUSD
	})

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Model", "Calls", "Input", "Cached", "Thinking", "Output", "Cost (USD)"})
	row := func(name string, s *usage.Summary) []string {
		return []string{
			name,
			strconv.Itoa(s.TotalRecords),
			humanize.Comma(s.TotalInputTokens),
			humanize.Comma(s.TotalCachedTokens),
			humanize.Comma(s.TotalThinkingTokens),
			humanize.Comma(s.TotalOutputTokens),
			fmt.Sprintf("%.6f", s.TotalCostUSD),
		}
	}
	for _, m := range models {
		table.Append(row(m, byModel[m]))
	}
	table.SetFooter(row("total", total))
	table.Render()
	if total.ClampedRecords > 0 {
		fmt.Fprintf(w, "%d record(s) had a total below prompt plus output tokens; thinking counted as 0\n", total.ClampedRecords)
	}
}
