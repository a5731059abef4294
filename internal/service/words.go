package service

import "math/rand"

// wordlist 用于生成单词式别名地址的字典。
// 只含小写字母，保证生成的本地部分匹配 ^[a-z-]+$。
var wordlist = []string{
	"able", "acid", "aged", "amber", "apple", "arrow", "atlas", "autumn",
	"bacon", "badge", "basil", "beacon", "berry", "birch", "blade", "bloom",
	"bluff", "board", "brass", "brave", "breeze", "brick", "brook", "bubble",
	"cabin", "candle", "canyon", "carbon", "cedar", "chalk", "cherry", "cliff",
	"cloud", "clover", "cobalt", "comet", "copper", "coral", "cotton", "cove",
	"crane", "creek", "crisp", "crystal", "daisy", "dawn", "delta", "dune",
	"eagle", "ember", "fable", "falcon", "feather", "fern", "field", "flint",
	"forest", "frost", "galaxy", "garnet", "ginger", "glade", "gleam", "grove",
	"harbor", "hazel", "heron", "hill", "holly", "honey", "ivory", "jade",
	"juniper", "kite", "lagoon", "lake", "lantern", "laurel", "lemon", "lily",
	"linen", "lotus", "lunar", "maple", "marble", "meadow", "mellow", "mint",
	"mist", "moss", "north", "oak", "ocean", "olive", "onyx", "opal",
	"orchard", "otter", "panda", "pearl", "pebble", "pine", "plum", "pond",
	"poppy", "prairie", "quartz", "quill", "rain", "raven", "reef", "ridge",
	"river", "robin", "rose", "rustic", "sage", "sand", "shadow", "shore",
	"silver", "sky", "slate", "snow", "solar", "sparrow", "spruce", "stone",
	"storm", "summit", "sunny", "swan", "thistle", "tiger", "timber", "topaz",
	"trail", "tulip", "umber", "valley", "velvet", "violet", "walnut", "wave",
	"willow", "winter", "wren", "zephyr",
}

const randomAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// randomWord 从字典中随机取一个单词
func randomWord(r *rand.Rand) string {
	return wordlist[r.Intn(len(wordlist))]
}

// randomWords 取 n 个单词用 "-" 连接，如 "cedar-falcon"
func randomWords(r *rand.Rand, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			out += "-"
		}
		out += randomWord(r)
	}
	return out
}

// randomString 生成指定长度的随机小写字母数字串
func randomString(r *rand.Rand, length int) string {
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = randomAlphabet[r.Intn(len(randomAlphabet))]
	}
	return string(buf)
}
