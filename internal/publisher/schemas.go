package publisher

// EventWeeklySnapshot is the event_type header of published snapshots.
const EventWeeklySnapshot = "dashboard.weekly_snapshot"

const weeklySnapshotSchema = `{
  "type": "object",
  "title": "WeeklySnapshot",
  "properties": {
    "event_id": {"type": "string"},
    "generated_at": {"type": "string", "format": "date-time"},
    "week_key": {"type": "string"},
    "activity_year": {"type": "integer"},
    "week": {"type": "integer"},
    "activities": {"type": "integer"},
    "distance": {"type": "number"},
    "time": {"type": "number"},
    "previous_week_activities": {"type": ["integer", "null"]},
    "previous_week_distance": {"type": ["number", "null"]},
    "previous_week_time": {"type": ["number", "null"]}
  },
  "required": ["event_id", "generated_at", "week_key", "activity_year", "week", "activities", "distance", "time"],
  "additionalProperties": false
}`
