package repository

import "github.com/twobeats/worldcup/internal/domain/model"

// SampleTracks is the development catalog inserted by the seed command.
// It holds enough pop tracks for a bracket of 32.
func SampleTracks() []model.Candidate {
	s := func(title, artist string, g model.Genre, tags ...string) model.Candidate {
		return model.Candidate{Title: title, Artist: artist, Genre: g, Tags: tags}
	}
	return []model.Candidate{
		s("Dynamite", "BTS", model.GenrePop, "신남", "드라이브", "여름"),
		s("Butter", "BTS", model.GenrePop, "신남", "파티"),
		s("봄날", "BTS", model.GenreBallad, "슬픔", "감성적", "겨울"),
		s("Love Dive", "IVE", model.GenreDance, "신남", "활기찬"),
		s("Hype Boy", "NewJeans", model.GenrePop, "신남", "여름", "드라이브"),
		s("Attention", "NewJeans", model.GenrePop, "신남", "파티"),
		s("사건의 지평선", "윤하", model.GenreBallad, "슬픔", "감성적", "새벽"),
		s("Ditto", "NewJeans", model.GenrePop, "잔잔함", "겨울"),
		s("TOMBOY", "(G)I-DLE", model.GenreHipHop, "신남", "활기찬"),
		s("손이 참 곱던 그대", "이영지", model.GenreHipHop, "슬픔", "감성적"),
		s("After LIKE", "IVE", model.GenreDance, "신남", "파티"),
		s("Eleven", "IVE", model.GenreDance, "활기찬"),
		s("OMG", "NewJeans", model.GenrePop, "잔잔함"),
		s("Super Shy", "NewJeans", model.GenrePop, "여름", "드라이브"),
		s("Next Level", "aespa", model.GenreDance, "활기찬", "드라이브"),
		s("Spicy", "aespa", model.GenreDance, "신남", "파티"),
		s("Supernova", "aespa", model.GenreDance, "활기찬"),
		s("ANTIFRAGILE", "LE SSERAFIM", model.GenreDance, "활기찬"),
		s("FEARLESS", "LE SSERAFIM", model.GenreDance, "신남"),
		s("Queencard", "(G)I-DLE", model.GenrePop, "신남", "파티"),
		s("Nxde", "(G)I-DLE", model.GenrePop, "활기찬"),
		s("Seven", "정국", model.GenrePop, "여름", "드라이브"),
		s("Spring Day", "BTS", model.GenreBallad, "감성적", "겨울"),
		s("밤편지", "아이유", model.GenreBallad, "잔잔함", "새벽"),
		s("Love wins all", "아이유", model.GenreBallad, "감성적"),
		s("Blueming", "아이유", model.GenrePop, "신남", "드라이브"),
		s("Celebrity", "아이유", model.GenrePop, "활기찬"),
		s("취중고백", "김민석", model.GenreBallad, "슬픔", "새벽"),
		s("첫눈", "EXO", model.GenreBallad, "겨울", "잔잔함"),
		s("Drama", "aespa", model.GenreDance, "활기찬"),
		s("How Sweet", "NewJeans", model.GenrePop, "여름"),
		s("Magnetic", "ILLIT", model.GenrePop, "신남"),
		s("APT.", "로제", model.GenrePop, "파티", "신남"),
		s("Whiplash", "aespa", model.GenreDance, "활기찬"),
		s("Bubble Gum", "NewJeans", model.GenrePop, "여름", "잔잔함"),
		s("Smart", "LE SSERAFIM", model.GenreDance, "활기찬"),
		s("Gods", "NewJeans", model.GenreRock, "활기찬"),
		s("Welcome to the Show", "DAY6", model.GenreRock, "신남", "드라이브"),
		s("예뻤어", "DAY6", model.GenreRock, "감성적", "새벽"),
		s("한 페이지가 될 수 있게", "DAY6", model.GenreRock, "여름", "드라이브"),
		s("나의 사춘기에게", "볼빨간사춘기", model.GenreIndie, "감성적"),
		s("Stay With Me", "찬열, 펀치", model.GenreOST, "겨울", "감성적"),
		s("Love Poem", "아이유", model.GenreBallad, "잔잔함"),
		s("Fly Me to the Moon", "Various", model.GenreJazz, "잔잔함", "새벽"),
		s("Thirsty", "aespa", model.GenreRnB, "새벽"),
		s("사랑의 배터리", "홍진영", model.GenreTrot, "신남", "파티"),
	}
}
