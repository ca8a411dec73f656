package main

import (
	"fmt"
	"regexp"
	"runtime"
	"time"

	"github.com/dsnet/golib/unitconv"
	"github.com/urfave/cli/v2"

	"github.com/crosstest-vm/crosstest/cache"
	"github.com/crosstest-vm/crosstest/logger"
	"github.com/crosstest-vm/crosstest/scheduler"
	"github.com/crosstest-vm/crosstest/script"
	"github.com/crosstest-vm/crosstest/summary"
	"github.com/crosstest-vm/crosstest/vm/eravm"
	"github.com/crosstest-vm/crosstest/vm/evm"
)

const (
	modeEraVM          = "eravm"
	modeEVM            = "evm"
	modeEVMInterpreter = "evm-interpreter"
)

var RunCmd = cli.Command{
	Action: doRun,
	Name:   "run",
	Usage:  "Run the test suite against the selected backends",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "filter",
			Usage: "run only tests whose name matches the given regex",
			Value: ".*",
		},
		&cli.IntFlag{
			Name:  "jobs",
			Usage: "number of jobs run simultaneously",
			Value: runtime.NumCPU(),
		},
		&cli.StringSliceFlag{
			Name:  "backend",
			Usage: fmt.Sprintf("backends to test (%s, %s, %s)", modeEraVM, modeEVM, modeEVMInterpreter),
			Value: cli.NewStringSlice(modeEVM),
		},
		&cli.StringFlag{
			Name:  "revision",
			Usage: "EVM fork revision for the standalone EVM backend",
			Value: "cancun",
		},
		&cli.StringFlag{
			Name:  "emulator",
			Usage: "registry name of the zk-stack execution emulator",
		},
		&cli.StringFlag{
			Name:  "system-contracts",
			Usage: "directory holding the pre-built system contract bundle",
		},
		&cli.BoolFlag{
			Name:  "system-mode",
			Usage: "deploy through the deployer system contract and route values through the transfer simulator",
		},
		&cli.Uint64Flag{
			Name:  "seed",
			Usage: "shuffle the unit order with the given seed",
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "print every passed test",
		},
		&cli.BoolFlag{
			Name:  "quiet",
			Usage: "suppress the milestone progress boxes",
		},
		&logger.LogLevelFlag,
	},
}

// environment holds the per-mode base state the backend factory clones from.
type environment struct {
	revision   evm.Revision
	native     *eravm.VM
	interp     *eravm.VM
	systemMode bool
}

func (e *environment) backend(mode string) (script.Backend, error) {
	switch mode {
	case modeEVM:
		return &script.EVMBackend{VM: evm.New(e.revision, 0)}, nil
	case modeEraVM:
		if e.native == nil {
			return nil, fmt.Errorf("backend %s requires --emulator and --system-contracts", mode)
		}
		var deployer eravm.Deployer = eravm.NewDirectDeployer()
		if e.systemMode {
			deployer = eravm.NewSystemContractDeployer()
		}
		return &script.EraVMBackend{VM: e.native.Clone(), Deployer: deployer}, nil
	case modeEVMInterpreter:
		if e.interp == nil {
			return nil, fmt.Errorf("backend %s requires --emulator and --system-contracts", mode)
		}
		return &script.EraVMBackend{
			VM:          e.interp.Clone(),
			Deployer:    eravm.NewSystemContractDeployer(),
			Interpreter: true,
		}, nil
	}
	return nil, fmt.Errorf("unknown backend %q, use one of: %s, %s, %s", mode, modeEraVM, modeEVM, modeEVMInterpreter)
}

func doRun(context *cli.Context) error {
	log := logger.NewLogger(context.String(logger.LogLevelFlag.Name), "crosstest")

	filter, err := regexp.Compile(context.String("filter"))
	if err != nil {
		return fmt.Errorf("invalid filter: %w", err)
	}

	jobs := context.Int("jobs")
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	modes := context.StringSlice("backend")
	if len(modes) == 0 {
		return fmt.Errorf("no backend selected")
	}
	for _, mode := range modes {
		switch mode {
		case modeEraVM, modeEVM, modeEVMInterpreter:
		default:
			return fmt.Errorf("unknown backend %q, use one of: %s, %s, %s", mode, modeEraVM, modeEVM, modeEVMInterpreter)
		}
	}

	revision, err := evm.ParseRevision(context.String("revision"))
	if err != nil {
		return err
	}

	env := &environment{
		revision:   revision,
		systemMode: context.Bool("system-mode"),
	}
	if err := setupZkStack(context, env, modes); err != nil {
		return err
	}

	tests := builtinSuite()
	builds := cache.New[string, *scheduler.Artifact]()
	for i := range tests {
		tests[i].Build = scheduler.Cached(builds, tests[i].Name, tests[i].Build)
	}

	units := scheduler.Matrix(tests, modes, filter)
	log.Noticef("scheduling %d units across %d workers", len(units), jobs)

	s := summary.New(context.Bool("verbose"), context.Bool("quiet"))
	start := time.Now()

	scheduler.Run(units, env.backend, s, scheduler.Config{
		Jobs: jobs,
		Seed: context.Uint64("seed"),
		Progress: func(elapsed time.Duration, rate float64, total int64) {
			log.Infof("processing ~%s units per second, total %d, elapsed %s",
				unitconv.FormatPrefix(rate, unitconv.SI, 0), total, elapsed.Round(time.Second))
		},
	})

	s.Report()
	hours, minutes, seconds := logger.ParseTime(time.Since(start))
	log.Noticef("finished in %dh %dm %ds", hours, minutes, seconds)

	if !s.IsSuccessful() {
		passed, failed, invalid, ignored := s.Counts()
		return fmt.Errorf("testing failed: %d passed, %d failed, %d invalid, %d ignored",
			passed, failed, invalid, ignored)
	}
	return nil
}

// setupZkStack bootstraps the base VM instances for the zk-stack backends
// when one of them is selected.
func setupZkStack(context *cli.Context, env *environment, modes []string) error {
	wantNative, wantInterp := false, false
	for _, mode := range modes {
		wantNative = wantNative || mode == modeEraVM
		wantInterp = wantInterp || mode == modeEVMInterpreter
	}
	if !wantNative && !wantInterp {
		return nil
	}

	emulator := context.String("emulator")
	dir := context.String("system-contracts")
	if emulator == "" || dir == "" {
		return fmt.Errorf("the zk-stack backends require --emulator and --system-contracts")
	}

	contracts, err := eravm.LoadSystemContracts(dir)
	if err != nil {
		return err
	}

	bootstrap := func(target eravm.ContextTarget) (*eravm.VM, error) {
		return eravm.New(eravm.Config{
			Emulator:          emulator,
			SystemContracts:   *contracts,
			Target:            target,
			UseValueSimulator: context.Bool("system-mode"),
		})
	}

	if wantNative {
		if env.native, err = bootstrap(eravm.TargetNative); err != nil {
			return err
		}
	}
	if wantInterp {
		if env.interp, err = bootstrap(eravm.TargetEVMInterpreter); err != nil {
			return err
		}
	}
	return nil
}
