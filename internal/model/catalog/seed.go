package catalog

// SeedEvents provides the default volunteering opportunities loaded when the
// catalog store is empty.
func SeedEvents() []EventRef {
	return []EventRef{
		{
			ID:        "evt-riverside-cleanup",
			Title:     "Riverside Park Cleanup",
			About:     "Join a morning litter-pick along the Thames path. Gloves and bags provided.",
			Date:      "2026-09-12",
			StartTime: "09:30",
			EndTime:   "12:30",
			City:      "London",
			Address:   "Riverside Park, Gate 2",
			Capacity:  40,
			Cause:     "Environment",
			Tags:      "outdoors,cleanup",
		},
		{
			ID:        "evt-food-bank-shift",
			Title:     "Food Bank Sorting Shift",
			About:     "Sort and shelve donated goods at the community food bank warehouse.",
			Date:      "2026-09-18",
			StartTime: "14:00",
			EndTime:   "17:00",
			City:      "Leeds",
			Address:   "Unit 4, Cross Green Industrial Estate",
			Capacity:  15,
			Cause:     "Food Security",
			Tags:      "indoors,logistics",
		},
		{
			ID:        "evt-code-club",
			Title:     "After-School Code Club Mentor",
			About:     "Help secondary school pupils build their first websites.",
			Date:      "2026-09-22",
			StartTime: "16:00",
			EndTime:   "18:00",
			City:      "Manchester",
			Address:   "St. Aidan's Academy, Room 12",
			Capacity:  8,
			Cause:     "Education",
			Tags:      "mentoring,tech",
		},
		{
			ID:        "evt-care-home-visit",
			Title:     "Care Home Companionship Afternoon",
			About:     "Spend an afternoon playing board games and chatting with residents.",
			Date:      "2026-10-03",
			StartTime: "13:30",
			EndTime:   "16:00",
			City:      "London",
			Address:   "Maple Lodge Care Home",
			Capacity:  12,
			Cause:     "Community",
			Tags:      "social,elderly",
		},
	}
}

// SeedTeams provides the default teams.
func SeedTeams() []TeamRef {
	return []TeamRef{
		{ID: "team-green-giants", Name: "Green Giants", Description: "Environmental projects across London.", MemberCount: 14},
		{ID: "team-code-for-good", Name: "Code for Good", Description: "Engineers mentoring at local schools.", MemberCount: 9},
		{ID: "team-kitchen-crew", Name: "Kitchen Crew", Description: "Food bank and community kitchen regulars.", MemberCount: 21},
	}
}

// SeedBadges provides the default badge definitions.
func SeedBadges() []BadgeRef {
	return []BadgeRef{
		{ID: "badge-first-steps", Name: "First Steps", Description: "Completed your first volunteering event.", Criteria: "1 event completed"},
		{ID: "badge-ten-hours", Name: "Ten Hours Strong", Description: "Volunteered ten hours in total.", Criteria: "10 hours logged"},
		{ID: "badge-team-player", Name: "Team Player", Description: "Attended an event with your team.", Criteria: "1 team event completed"},
		{ID: "badge-streak", Name: "On a Roll", Description: "Volunteered three months in a row.", Criteria: "3 consecutive months"},
	}
}

// SeedImpact provides the default leaderboard entries.
func SeedImpact() []ImpactStats {
	return []ImpactStats{
		{UserID: "ava.morris", DisplayName: "Ava Morris", HoursVolunteered: 42.5, EventsCompleted: 11, BadgesEarned: 4},
		{UserID: "dan.okafor", DisplayName: "Dan Okafor", HoursVolunteered: 35, EventsCompleted: 9, BadgesEarned: 3},
		{UserID: "mei.tan", DisplayName: "Mei Tan", HoursVolunteered: 28, EventsCompleted: 8, BadgesEarned: 3},
		{UserID: "jon.willis", DisplayName: "Jon Willis", HoursVolunteered: 12, EventsCompleted: 4, BadgesEarned: 1},
	}
}
