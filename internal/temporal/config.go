package temporal

import "time"

// TaskQueueName is the task queue serving the notification jobs.
const TaskQueueName = "AMI_NOTIFICATIONS"

const (
	PublishDueWorkflowName = "PublishDueWorkflow"
	SweepWorkflowName      = "SweepWorkflow"

	PublishDueScheduleID = "ami-publish-due"
	SweepScheduleID      = "ami-retention-sweep"
)

// DefaultActivityTimeout bounds one job run, push fan-out included.
const DefaultActivityTimeout = 10 * time.Minute
