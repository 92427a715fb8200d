package dispatch

import (
	"sort"

	"signalflow/models"
)

// alertQueue orders pending alerts so confirmed setups go out before range
// detections and raw momentum alerts. Equal priorities keep arrival order.
type alertQueue struct {
	alerts []models.Alert
}

func (q *alertQueue) Push(alert models.Alert) {
	q.alerts = append(q.alerts, alert)
	sort.SliceStable(q.alerts, func(i, j int) bool {
		return q.alerts[i].Type.Priority() > q.alerts[j].Type.Priority()
	})
}

func (q *alertQueue) Pop() (models.Alert, bool) {
	if len(q.alerts) == 0 {
		return models.Alert{}, false
	}
	alert := q.alerts[0]
	q.alerts = q.alerts[1:]
	return alert, true
}

func (q *alertQueue) Len() int {
	return len(q.alerts)
}
