package workrecords

type Task string

const (
	TaskSales     Task = "Sales"
	TaskSupport   Task = "Support"
	TaskContent   Task = "Content"
	TaskPaperWork Task = "Paper-work"
)

var Tasks = []Task{TaskSales, TaskSupport, TaskContent, TaskPaperWork}

const DefaultTask = TaskSales
