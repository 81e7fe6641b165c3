package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/docopt/docopt-go"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/mergington/apps/shared"
	"github.com/trezcool/mergington/core"
	"github.com/trezcool/mergington/core/dashboard"
	"github.com/trezcool/mergington/core/view"
)

const usage = `Mergington High School activities.

Usage:
  mergington list [--search=<term>] [--day=<day>] [--category=<cat>] [--sort=<key>] [--featured | --full]
  mergington show <activity>
  mergington signup <activity> <email>
  mergington unregister <activity> <email> [--yes]
  mergington login <email>
  mergington logout
  mergington whoami
  mergington stats
  mergington -h | --help
  mergington --version

Options:
  -h --help         Show this screen.
  --version         Show version.
  --search=<term>   Only activities whose name or description contains term.
  --day=<day>       Only activities scheduled on day.
  --category=<cat>  One of sports, academic, arts, other.
  --sort=<key>      Sort by name or schedule.
  --featured        Only featured activities.
  --full            Show full cards, rosters included.
  --yes             Do not ask for confirmation.`

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp     = errors.New("help provided")
	errReported = errors.New("failure already reported")
)

type commandLine struct {
	deps *shared.Deps
	in   *bufio.Reader
	out  io.Writer
}

func newCommandLine(deps *shared.Deps, in io.Reader, out io.Writer) *commandLine {
	return &commandLine{deps: deps, in: bufio.NewReader(in), out: out}
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	var helped bool
	parser := &docopt.Parser{
		HelpHandler: func(_ error, text string) {
			helped = true
			fmt.Fprintln(cli.out, text)
		},
	}
	opts, err := parser.ParseArgs(usage, args[1:], cli.deps.Conf.Build)
	if err != nil {
		return errHelp
	}
	if helped {
		return nil
	}

	switch {
	case isSet(opts, "list"):
		return cli.list(ctx, opts)
	case isSet(opts, "show"):
		return cli.show(ctx, str(opts, "<activity>"))
	case isSet(opts, "signup"):
		return cli.signup(ctx, str(opts, "<activity>"), str(opts, "<email>"))
	case isSet(opts, "unregister"):
		return cli.unregister(ctx, str(opts, "<activity>"), str(opts, "<email>"), isSet(opts, "--yes"))
	case isSet(opts, "login"):
		return cli.login(ctx, str(opts, "<email>"))
	case isSet(opts, "logout"):
		return cli.logout(ctx)
	case isSet(opts, "whoami"):
		return cli.whoami()
	case isSet(opts, "stats"):
		return cli.stats(ctx)
	}
	fmt.Fprintln(cli.out, usage)
	return errHelp
}

func isSet(opts docopt.Opts, key string) bool {
	b, _ := opts.Bool(key)
	return b
}

func str(opts docopt.Opts, key string) string {
	s, _ := opts.String(key)
	return s
}

// start runs a controller synchronizing layout until the returned stop is called.
func (cli *commandLine) start(ctx context.Context, layout view.Layout) (*dashboard.Controller, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	ctrl := cli.deps.NewController(dashboard.Options{Layouts: []view.Layout{layout}})
	go func() { _ = ctrl.Run(ctx) }()
	return ctrl, cancel
}

// load fetches the activities; on failure the document, showing the failure placeholder, is printed.
func (cli *commandLine) load(ctx context.Context, ctrl *dashboard.Controller, layout view.Layout) error {
	if err := ctrl.Do(ctx, dashboard.Event{Kind: dashboard.EventLoad}); err != nil {
		return cli.report(ctx, ctrl, layout, err)
	}
	return nil
}

func (cli *commandLine) render(ctx context.Context, ctrl *dashboard.Controller, layout view.Layout) error {
	return ctrl.View(ctx, layout, func(doc *view.Document) error { return doc.RenderText(cli.out) })
}

// flash prints the messages displayed in slots.
func (cli *commandLine) flash(ctx context.Context, ctrl *dashboard.Controller, layout view.Layout, slots ...view.Slot) error {
	return ctrl.View(ctx, layout, func(doc *view.Document) error {
		for _, slot := range slots {
			if msg, ok := doc.Message(slot); ok {
				fmt.Fprintln(cli.out, msg.Text)
			}
		}
		return nil
	})
}

// report prints the document for a failed event; the failure itself is displayed there.
func (cli *commandLine) report(ctx context.Context, ctrl *dashboard.Controller, layout view.Layout, err error) error {
	if ctx.Err() != nil {
		return err
	}
	if rerr := cli.render(ctx, ctrl, layout); rerr != nil {
		return rerr
	}
	return errReported
}

// outcome prints the messages of slots and turns a displayed failure into errReported.
func (cli *commandLine) outcome(ctx context.Context, ctrl *dashboard.Controller, err error, slots ...view.Slot) error {
	if ctx.Err() != nil {
		return err
	}
	if ferr := cli.flash(ctx, ctrl, view.LayoutDashboard, slots...); ferr != nil {
		return ferr
	}
	if err != nil {
		return errReported
	}
	return nil
}

func (cli *commandLine) list(ctx context.Context, opts docopt.Opts) error {
	layout := view.LayoutList
	switch {
	case isSet(opts, "--featured"):
		layout = view.LayoutHome
	case isSet(opts, "--full"):
		layout = view.LayoutDashboard
	}

	filter, err := shared.ParseFilter(str(opts, "--search"), str(opts, "--day"), str(opts, "--category"), str(opts, "--sort"))
	if err != nil {
		return err
	}

	ctrl, stop := cli.start(ctx, layout)
	defer stop()
	if err = cli.load(ctx, ctrl, layout); err != nil {
		return err
	}
	if !filter.IsEmpty() {
		if err = ctrl.Do(ctx, dashboard.Event{Kind: dashboard.EventFilter, Filter: filter}); err != nil {
			return err
		}
	}
	return cli.render(ctx, ctrl, layout)
}

func (cli *commandLine) show(ctx context.Context, name string) error {
	ctrl, stop := cli.start(ctx, view.LayoutDetail)
	defer stop()
	if err := cli.load(ctx, ctrl, view.LayoutDetail); err != nil {
		return err
	}
	if err := ctrl.Do(ctx, dashboard.Event{Kind: dashboard.EventFocus, Activity: name}); err != nil {
		return cli.report(ctx, ctrl, view.LayoutDetail, err)
	}
	return cli.render(ctx, ctrl, view.LayoutDetail)
}

func (cli *commandLine) signup(ctx context.Context, name, email string) error {
	ctrl, stop := cli.start(ctx, view.LayoutDashboard)
	defer stop()
	if err := cli.load(ctx, ctrl, view.LayoutDashboard); err != nil {
		return err
	}
	err := ctrl.Do(ctx, dashboard.Event{Kind: dashboard.EventSignup, Activity: name, Email: email})
	return cli.outcome(ctx, ctrl, err, view.BannerSlot())
}

func (cli *commandLine) unregister(ctx context.Context, name, email string, yes bool) error {
	if !yes {
		ok, err := cli.confirm(fmt.Sprintf("Unregister %s from %s?", email, name))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cli.out, "Aborted.")
			return nil
		}
	}

	ctrl, stop := cli.start(ctx, view.LayoutDashboard)
	defer stop()
	if err := cli.load(ctx, ctrl, view.LayoutDashboard); err != nil {
		return err
	}
	err := ctrl.Do(ctx, dashboard.Event{Kind: dashboard.EventUnregister, Activity: name, Email: email})
	return cli.outcome(ctx, ctrl, err, view.BannerSlot())
}

func (cli *commandLine) confirm(question string) (bool, error) {
	fmt.Fprintf(cli.out, "%s [y/N]: ", question)
	answer, err := cli.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, errors.Wrap(err, "reading confirmation")
	}
	switch core.CleanString(answer, true /* lower */) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func (cli *commandLine) login(ctx context.Context, email string) error {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(os.Stdin.Fd()))
	fmt.Fprintln(cli.out)
	if err != nil {
		return errors.Wrap(err, "reading password")
	}

	ctrl, stop := cli.start(ctx, view.LayoutDashboard)
	defer stop()
	err = ctrl.Do(ctx, dashboard.Event{Kind: dashboard.EventLogin, Email: email, Password: string(pwd)})
	return cli.outcome(ctx, ctrl, err, view.FormSlot("login"), view.BannerSlot())
}

func (cli *commandLine) logout(ctx context.Context) error {
	ctrl, stop := cli.start(ctx, view.LayoutDashboard)
	defer stop()
	err := ctrl.Do(ctx, dashboard.Event{Kind: dashboard.EventLogout})
	return cli.outcome(ctx, ctrl, err, view.BannerSlot())
}

func (cli *commandLine) whoami() error {
	id, ok := cli.deps.Session.Current()
	if !ok {
		fmt.Fprintln(cli.out, "Not logged in")
		return nil
	}
	fmt.Fprintf(cli.out, "%s <%s>\n", id.Name, id.Email)
	return nil
}

func (cli *commandLine) stats(ctx context.Context) error {
	ctrl, stop := cli.start(ctx, view.LayoutList)
	defer stop()
	if err := cli.load(ctx, ctrl, view.LayoutList); err != nil {
		return err
	}
	return ctrl.View(ctx, view.LayoutList, func(doc *view.Document) error {
		st := doc.Stats()
		fmt.Fprintf(cli.out, "Activities:   %d\nParticipants: %d\n", st.Activities, st.Participants)
		return nil
	})
}
