package llm

const systemPrompt = "You are an expert at analyzing engineering documents, particularly P&ID (Process and Instrumentation Diagrams) and technical datasheets."

const documentChatPrompt = `Document content:
%s

User question: %s

Please provide a helpful response based on the document content. If the user is asking about specific fields or data extraction, help them understand what information is available in the document.

If the user asks to extract a specific field, provide the extracted information in a clear format.`

const extractPrompt = `You are an expert at extracting specific information from engineering documents.

Document content:
%s

Task: %s

Please extract the requested information from the document. If the information is not available, clearly state that it was not found. Provide only the extracted value without additional explanation.`

const libraryChatPrompt = `You have access to data extracted from multiple engineering documents.

Available documents and their extracted data:
%s

Document summaries:
%s

User question: %s

Please provide a helpful response based on the available extracted data from all documents. You can:
1. Answer questions about specific fields or values
2. Compare data across different documents
3. Provide summaries or insights
4. Help find specific information
5. Explain technical details found in the documents

If the user asks about something not available in the extracted data, let them know what information IS available.`

// message keywords that make a chat also return extracted values
var (
	documentExtractKeywords = []string{"extract", "find", "get", "show me"}
	libraryExtractKeywords  = []string{"extract", "find", "get", "show me", "list", "what are"}
)
