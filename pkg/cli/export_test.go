package cli

var (
	PrintTasks   = printTasks
	CollectTasks = collectTasks
)
