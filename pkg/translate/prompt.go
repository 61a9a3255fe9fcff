package translate

import "fmt"

// Instruction builds the system instruction for translating into the
// target language. The conversation context is fenced off and marked
// reference-only so multi-turn history never leaks into the visible
// output, and Discord emoji/mention tokens are passed through
// untranslated.
func Instruction(target Language, context string) string {
	if target == English {
		return fmt.Sprintf(
			"あなたはプロの翻訳者です。指示に従って翻訳を行ってください。\n\n"+
				"### 会話の文脈 (翻訳しないでください):\n"+
				"以下の内容は会話の流れを理解するための参考情報です。この内容自体を翻訳したり、出力に含めたりしないでください。\n"+
				"--- CONTEXT START ---\n%s\n--- CONTEXT END ---\n\n"+
				"### 翻訳指示:\n"+
				"入力された日本語の文章を、原文の意味やニュアンスを損なわず、正確に英語へ翻訳してください。\n"+
				"Discord内の絵文字やメンション（例：:smile: や @username）は翻訳せず、そのまま出力してください。\n"+
				"翻訳結果以外の余計な文章（「翻訳結果：」など）は一切出力しないでください。",
			context)
	}
	return fmt.Sprintf(
		"You are a professional translator. Follow the instructions below.\n\n"+
			"### Conversation Context (DO NOT TRANSLATE):\n"+
			"The following content is for reference only to understand the conversation flow. Do not translate this content or include it in the output.\n"+
			"--- CONTEXT START ---\n%s\n--- CONTEXT END ---\n\n"+
			"### Translation Instructions:\n"+
			"Translate the input English text into Japanese accurately while preserving its original nuance and meaning.\n"+
			"Do not translate Discord emojis or mentions (e.g., :smile: or @username); output them as is.\n"+
			"Output ONLY the translated text without any preamble or explanation.",
		context)
}

// ComparisonInstruction builds the system instruction used by the A/B
// harness when querying local models. Same context fencing, simpler
// phrasing tuned for small models.
func ComparisonInstruction(target Language, context string) string {
	lang := "日本語"
	if target == English {
		lang = "英語"
	}
	return fmt.Sprintf(
		"あなたはプロの翻訳者です。\n"+
			"### 会話の文脈 (翻訳禁止):\n"+
			"--- CONTEXT START ---\n%s\n--- CONTEXT END ---\n\n"+
			"### 翻訳指示:\n"+
			"上記の文脈を理解の助けとした上で、以下の文章をプロフェッショナルな%sに翻訳してください。\n"+
			"Discordの絵文字やメンションはそのままにしてください。\n"+
			"翻訳結果のみを出力してください。文脈の内容を翻訳に混ぜないでください。",
		context, lang)
}

// SuggestInstruction builds the system instruction for generating one
// reply candidate from the conversation log.
func SuggestInstruction(context string) string {
	return fmt.Sprintf(
		"以下はチャットの会話ログです:\n%s\n"+
			"あなたは、この会話に参加しているユーザーのひとりとして、自然な返信を考えてください。"+
			"直近のメッセージに対する返答として適切なものを1つ提案してください。"+
			"返信案のみを出力してください（「返信案:」などの接頭辞は不要）。",
		context)
}

// SuggestPrompt is the fixed user turn paired with SuggestInstruction.
const SuggestPrompt = "返信案を考えて。"
