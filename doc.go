// Package prog runs a command line program as a foreground process or as a
// detached daemon, and lets it stop cleanly on termination signals.
//
// The process context is created once, from the entry point:
//
//	func main() {
//		p, err := prog.InitArgs(os.Args, func(cmds []command.Command) (prog.Info, error) {
//			return prog.NewInfo(cmds[0].Name(), "[--detach]"), nil
//		})
//		if err != nil {
//			fmt.Fprintln(os.Stderr, err)
//			os.Exit(prog.ExitFailure)
//		}
//
//		detach, err := p.Command().Option("detach").PresentNoValue()
//		if err != nil {
//			p.ExitUsage()
//		}
//
//		bridge := p.SetSignals(context.Background())
//		defer bridge.Close()
//
//		p.Start(detach, serve)
//	}
//
//	func serve(p *prog.Process) error {
//		for p.Running() {
//			// work
//		}
//		return nil
//	}
//
// Stop state:
// The process holds the number of the last termination signal received, 0
// while running. Signals subscribed with SetSignals record it, as do
// RequestStop, Shutdown and the WithShutdownOnError wrapper. Nothing is
// interrupted: the program polls Running (or waits on Stopping) and returns.
//
// Detaching:
// Start with detach set performs the classic double fork. A Go program cannot
// fork itself, so each fork re-executes the binary with the same arguments;
// the child runs main again and Start resumes the sequence at the step the
// parent stopped at. Code before Start therefore runs in every generation and
// must not have side effects that cannot be repeated.
package prog
