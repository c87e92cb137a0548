package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/elmarb/edurate/internal/scheduler"
	"github.com/elmarb/edurate/internal/scheduler/jobs"
	"github.com/elmarb/edurate/pkg/config"
	"github.com/elmarb/edurate/pkg/database"
	"github.com/elmarb/edurate/pkg/logger"
	"github.com/elmarb/edurate/pkg/redis"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Manage the recalculation scheduler",
	Long: `Runs scheduled jobs or inspects their state.

Jobs:
  rating_recalculation - nightly scope recalculation at 2 AM,
                         scoped by RATING_ROOT_INSTITUTION_ID and
                         RATING_CURRENT_PERIOD

Subcommands:
  start   - run the scheduler until interrupted
  list    - list registered jobs
  run     - run one job immediately
  status  - show job execution history

Example:
  go run ./cmd/edurate scheduler start
  go run ./cmd/edurate scheduler run rating_recalculation`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Run the scheduler until interrupted",
		RunE:  runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run one job immediately",
		Args:  cobra.ExactArgs(1),
		RunE:  runJobNow,
	}

	schedulerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show job execution history",
		RunE:  showJobStatus,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	sched, cleanup, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer cleanup()

	sched.Start()
	defer sched.Stop()

	fmt.Println("Scheduler started, registered jobs:")
	for _, jobName := range sched.Jobs() {
		fmt.Printf("  - %s\n", jobName)
	}
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("Shutting down scheduler...")
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	sched, cleanup, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer cleanup()

	fmt.Println("Registered jobs:")
	for _, jobName := range sched.Jobs() {
		fmt.Printf("  - %s\n", jobName)
	}

	return nil
}

func runJobNow(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	sched, cleanup, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer cleanup()

	fmt.Printf("Running job: %s\n", jobName)

	if err := sched.RunJob(jobName); err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	// RunJob is asynchronous; wait for the result before exiting.
	for {
		history, err := sched.History(jobName)
		if err != nil {
			return fmt.Errorf("job history: %w", err)
		}

		if latest := history.Latest(1); len(latest) == 1 {
			result := latest[0]
			if !result.Success {
				return fmt.Errorf("job %s failed: %s", jobName, result.Error)
			}
			fmt.Printf("Job finished in %s\n", result.Duration)
			return nil
		}

		time.Sleep(500 * time.Millisecond)
	}
}

func showJobStatus(cmd *cobra.Command, args []string) error {
	sched, cleanup, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer cleanup()

	for _, jobName := range sched.Jobs() {
		history, err := sched.History(jobName)
		if err != nil {
			return fmt.Errorf("job history: %w", err)
		}

		fmt.Printf("%s\n", jobName)
		fmt.Printf("  Total Runs: %d\n", len(history.Results))
		fmt.Printf("  Success Rate: %.1f%%\n", history.SuccessRate()*100)

		if latest := history.Latest(1); len(latest) == 1 {
			result := latest[0]
			fmt.Printf("  Last Run: %s (success=%v, %s)\n",
				result.StartTime.Format("2006-01-02 15:04:05"), result.Success, result.Duration)
		}

		fmt.Println()
	}

	return nil
}

// initScheduler wires a scheduler with all jobs registered. The
// returned cleanup closes the database and redis connections.
func initScheduler() (*scheduler.Scheduler, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	rdb, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}

	svc := buildService(cfg, log, db, rdb)

	sched := scheduler.New(log)
	if err := sched.AddJob(jobs.NewRecalculateJob(svc, cfg, log)); err != nil {
		db.Close()
		rdb.Close()
		return nil, nil, fmt.Errorf("register recalculation job: %w", err)
	}

	cleanup := func() {
		rdb.Close()
		db.Close()
	}

	return sched, cleanup, nil
}
