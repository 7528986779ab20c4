package cache

import "fmt"

func SeasonStandingsKey(seasonID int) string {
	return fmt.Sprintf("season:%d:standings", seasonID)
}

func SeasonScheduleKey(seasonID int) string {
	return fmt.Sprintf("season:%d:schedule", seasonID)
}

func SeasonResultsKey(seasonID int) string {
	return fmt.Sprintf("season:%d:results", seasonID)
}

func SeasonStatsKey(seasonID int) string {
	return fmt.Sprintf("season:%d:player-stats", seasonID)
}

func SeasonBracketKey(seasonID int) string {
	return fmt.Sprintf("season:%d:bracket", seasonID)
}

func SeasonDisqualificationsKey(seasonID int) string {
	return fmt.Sprintf("season:%d:disqualifications", seasonID)
}

func CompetitionPrefix(competitionID int) string {
	return fmt.Sprintf("competition:%d:", competitionID)
}

func MatchKey(matchID int) string {
	return fmt.Sprintf("match:%d", matchID)
}

func MatchPredictionsKey(matchID int) string {
	return fmt.Sprintf("match:%d:predictions", matchID)
}

func ClubPrefix(clubID int) string {
	return fmt.Sprintf("club:%d:", clubID)
}

func UserPredictionsKey(userID int) string {
	return fmt.Sprintf("user:%d:predictions", userID)
}

const LeaderboardKey = "ratings:leaderboard"
