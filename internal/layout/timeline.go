package layout

import (
	"time"

	"github.com/julianstephens/calgrid/internal/models"
)

const minutesPerDay = 24 * 60

// Block is an event placed on a day timeline.
type Block struct {
	Event models.Event
	// Group is the index of the overlap group the event belongs to.
	Group int
	// Column is the lane inside the group; GroupSize is the number of lanes.
	Column    int
	GroupSize int
	// TopMinutes and HeightMinutes are measured from midnight and clipped to the day.
	TopMinutes    int
	HeightMinutes int
}

// LayoutDay places the events starting on day into overlap groups and lanes. Each
// event takes the first lane whose previous occupant has ended.
func LayoutDay(events []models.Event, day time.Time) []Block {
	midnight := StartOfDay(day)
	var blocks []Block

	for g, group := range GroupOverlapping(EventsForDay(events, day)) {
		var laneEnds []time.Time
		first := len(blocks)

		for _, e := range group {
			lane := -1
			for i, end := range laneEnds {
				if !e.Start.Before(end) {
					lane = i
					break
				}
			}
			if lane < 0 {
				lane = len(laneEnds)
				laneEnds = append(laneEnds, e.End)
			} else {
				laneEnds[lane] = e.End
			}

			top := minutesSince(midnight, e.Start)
			bottom := minutesSince(midnight, e.End)
			if bottom > minutesPerDay {
				bottom = minutesPerDay
			}
			height := bottom - top
			if height < 1 {
				height = 1
			}

			blocks = append(blocks, Block{
				Event:         e,
				Group:         g,
				Column:        lane,
				TopMinutes:    top,
				HeightMinutes: height,
			})
		}

		for i := first; i < len(blocks); i++ {
			blocks[i].GroupSize = len(laneEnds)
		}
	}
	return blocks
}

func minutesSince(midnight, t time.Time) int {
	m := int(t.Sub(midnight) / time.Minute)
	if m < 0 {
		return 0
	}
	return m
}
