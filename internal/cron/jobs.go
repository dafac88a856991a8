package cron

type processedRecorder interface {
	AddProcessed(job string, rows int)
}

func recordProcessed(m processedRecorder, job string, rows int) {
	if m == nil || rows <= 0 {
		return
	}
	m.AddProcessed(job, rows)
}
