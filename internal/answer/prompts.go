package answer

import (
	"fmt"
	"strings"
)

// SystemPrompt instructs the model to stay grounded in the supplied
// documents and answer in Markdown.
const SystemPrompt = `You are a helpful AI assistant that answers questions based on provided context documents. 

Instructions:
1. Use only the information provided in the context documents to answer questions
2. Format your response using proper Markdown syntax with headings, bullet points, bold text, etc.
3. Always cite which source document(s) you're using in your response
4. Provide accurate, helpful, and well-structured answers
5. If multiple sources provide relevant information, synthesize them appropriately
6. Use proper Markdown formatting like:
   - **Bold text** for important concepts
   - ` + "`Code formatting`" + ` for technical terms
   - ## Headings for sections
   - * Bullet points for lists
   - > Blockquotes for emphasis
7. If the context doesn't contain enough information, say so clearly and suggest what additional information might be needed`

// BuildContext renders sources as "Source: name\nContent: text" blocks
// separated by blank lines.
func BuildContext(sources []Source) string {
	blocks := make([]string, len(sources))
	for i, s := range sources {
		blocks[i] = fmt.Sprintf("Source: %s\nContent: %s", s.DocumentName, s.ChunkText)
	}
	return strings.Join(blocks, "\n\n")
}

// BuildUserPrompt wraps the context and question.
func BuildUserPrompt(question string, sources []Source) string {
	return fmt.Sprintf(`Context Documents:
%s

Question: %s

Please provide a comprehensive answer based on the context documents above. If the context doesn't contain sufficient information to answer the question, please state that clearly.`,
		BuildContext(sources), question)
}

func mockFoundAnswer(question string, n int) string {
	return fmt.Sprintf(`## 📚 **Information Found**

Based on the retrieved documents, I can provide information about your question: **"%s"**.

### 📄 **Sources Found**
I found **%d** relevant document(s) that discuss this topic.

> **Note**: This is running in test mode without a real LLM connection. I'm providing this mock response.

### ⚙️ **To Enable Full AI Responses**
To get actual AI-generated responses, please set the `+"`OPENROUTER_API_KEY`"+` environment variable.`, question, n)
}

func mockEmptyAnswer(question string) string {
	return fmt.Sprintf(`## ❌ **No Relevant Documents Found**

I searched the knowledge base for information about **"%s"** but didn't find any relevant documents.

### 🔍 **Possible Reasons**
1. **No documents uploaded**: The knowledge base might be empty
2. **Topic not covered**: The uploaded documents don't contain information about this topic
3. **Search limitations**: The search didn't find good matches

### 💡 **Suggestions**
- Try rephrasing your question
- Upload relevant documents to the knowledge base
- Use more specific or different keywords

> **Note**: This is a mock response since no OpenRouter API key is configured.`, question)
}
