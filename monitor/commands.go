package monitor

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"ember/internal/buildinfo"
	"ember/kernel"

	"github.com/sugawarayuuta/sonnet"
)

func builtins() []command {
	return []command{
		{name: "help", help: "list commands", run: cmdHelp},
		{name: "ps", help: "list threads and processes", run: cmdPs},
		{name: "stats", help: "kernel counters", run: cmdStats},
		{name: "jitter", usage: "[task]", help: "periodic task jitter histograms", run: cmdJitter},
		{name: "time", help: "system time and cycle counter", run: cmdTime},
		{name: "clear", help: "reset system time to zero", run: cmdClear},
		{name: "json", help: "kernel snapshot as JSON", run: cmdJSON},
		{name: "check", help: "verify scheduler invariants", run: cmdCheck},
		{name: "version", help: "build information", run: cmdVersion},
	}
}

func cmdHelp(s *Shell, _ []string) error {
	tw := tabwriter.NewWriter(s.out, 0, 8, 2, ' ', 0)
	for _, c := range s.cmds {
		fmt.Fprintf(tw, "%s %s\t%s\n", c.name, c.usage, c.help)
	}
	return tw.Flush()
}

func cmdPs(s *Shell, _ []string) error {
	snap := s.k.Snapshot()
	tw := tabwriter.NewWriter(s.out, 0, 8, 1, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRI\tSTATE\tRUNS\tSTACK\tPROC")
	for _, t := range snap.Threads {
		name := t.Name
		if t.Background {
			name += "*"
		}
		if t.ID == snap.Current {
			name = ">" + name
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%d\t%d\t%s\n",
			t.ID, name, t.Priority, threadState(t), t.Runs, t.StackWords, t.Process)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	s.printf("%d ready, %d free\n", snap.Ready, snap.FreeThreads)
	return nil
}

func threadState(t kernel.ThreadInfo) string {
	if t.SleepMs > 0 {
		return fmt.Sprintf("%s(%dms)", t.State, t.SleepMs)
	}
	return t.State
}

func cmdStats(s *Shell, _ []string) error {
	snap := s.k.Snapshot()
	tw := tabwriter.NewWriter(s.out, 0, 8, 1, ' ', 0)
	rows := []struct {
		name string
		v    any
	}{
		{"scheduler", snap.Scheduler},
		{"ticks", snap.Ticks},
		{"switches", snap.Switches},
		{"idle loops", snap.IdleLoops},
		{"spawned", snap.Spawned},
		{"killed", snap.Killed},
		{"background done", snap.BackgroundDone},
		{"blocks", snap.Blocks},
		{"dropped", snap.Dropped},
		{"processes done", snap.ProcessesDone},
		{"free words", snap.FreeWords},
		{"masked max", snap.MaskedMax},
		{"masked total", snap.MaskedTotal},
		{"serial lost", s.Lost()},
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%v\n", r.name, r.v)
	}
	return tw.Flush()
}

const barWidth = 32

func cmdJitter(s *Shell, args []string) error {
	snap := s.k.Snapshot()
	found := false
	for _, task := range snap.Tasks {
		if task.Kind != "periodic" || len(args) > 0 && args[0] != task.Name {
			continue
		}
		found = true
		s.printf("%s: period %v, %d runs, %d dropped, max %v\n",
			task.Name, task.Period, task.Runs, task.Dropped, task.MaxJitter)
		writeHistogram(s, task.Jitter)
	}
	if !found && len(args) > 0 {
		return fmt.Errorf("no periodic task %q", args[0])
	}
	return nil
}

func writeHistogram(s *Shell, buckets []uint32) {
	var peak uint32
	for _, n := range buckets {
		peak = max(peak, n)
	}
	if peak == 0 {
		return
	}
	for i, n := range buckets {
		if n == 0 {
			continue
		}
		label := fmt.Sprintf("%dus", i)
		if i == len(buckets)-1 {
			label = ">=" + label
		}
		w := int(uint64(n) * barWidth / uint64(peak))
		s.printf("%6s %s %d\n", label, strings.Repeat("#", max(w, 1)), n)
	}
}

func cmdTime(s *Shell, _ []string) error {
	ms := s.k.MsTime()
	s.printf("time %v, ticks %d, cycles %d\n",
		time.Duration(ms)*time.Millisecond, s.k.Ticks(), s.k.Time())
	return nil
}

func cmdClear(s *Shell, _ []string) error {
	s.k.ClearMsTime()
	return nil
}

func cmdJSON(s *Shell, _ []string) error {
	b, err := sonnet.Marshal(s.k.Snapshot())
	if err != nil {
		return err
	}
	_, err = s.out.Write(append(b, '\n'))
	return err
}

func cmdCheck(s *Shell, _ []string) error {
	if err := s.k.CheckInvariants(); err != nil {
		return err
	}
	s.write("ok\n")
	return nil
}

func cmdVersion(s *Shell, _ []string) error {
	s.printf("ember %s\n", buildinfo.String())
	return nil
}
