package models

import "time"

// The planning horizon: Monday-Friday, 08:00-18:00, partitioned into
// 55-minute slots. All availability matrices, rule slot indices, and
// ScheduledSlot.DayOfWeek fields use this grid.
const (
	DaysPerWeek  = 5
	SlotMinutes  = 55
	DayStartHour = 8
	DayEndHour   = 18
	SlotsPerDay  = (DayEndHour - DayStartHour) * 60 / SlotMinutes
)

// RoomType enumerates the acceptable classroom/course room categories.
type RoomType string

const (
	RoomTypeLecture     RoomType = "lecture"
	RoomTypeLab         RoomType = "lab"
	RoomTypeComputerLab RoomType = "computer_lab"
	RoomTypeConference  RoomType = "conference"
)

// roomCompatibility maps a course's declared room_type to the set of
// classroom room_types that may host it. The relation is asymmetric: a
// classroom's type never "upgrades" a course's requirement.
var roomCompatibility = map[RoomType]map[RoomType]bool{
	RoomTypeLecture:     {RoomTypeLecture: true, RoomTypeConference: true},
	RoomTypeLab:         {RoomTypeLab: true, RoomTypeComputerLab: true},
	RoomTypeComputerLab: {RoomTypeComputerLab: true},
	RoomTypeConference:  {RoomTypeConference: true},
}

// RoomTypeCompatible reports whether a course requiring courseType may
// occupy a classroom of classroomType.
func RoomTypeCompatible(courseType, classroomType RoomType) bool {
	accepted, ok := roomCompatibility[courseType]
	if !ok {
		return false
	}
	return accepted[classroomType]
}

// SlotToTime converts a slot index (0..SlotsPerDay-1) to its start-of-day
// offset, i.e. 08:00 + 55*s minutes.
func SlotToTime(slot int) time.Duration {
	return time.Duration(DayStartHour)*time.Hour + time.Duration(slot*SlotMinutes)*time.Minute
}

// TimeToSlot converts a time-of-day offset back to a slot index.
// time_to_slot(t) = floor((t - 08:00) / 55min)
func TimeToSlot(t time.Duration) int {
	dayStart := time.Duration(DayStartHour) * time.Hour
	return int((t - dayStart) / (time.Duration(SlotMinutes) * time.Minute))
}
